package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"budgetit/internal/core"
	"budgetit/internal/export"
	applog "budgetit/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// serveView writes the result of a read-only ledger view.
func serveView[T any](s *Server, w http.ResponseWriter, r *http.Request, load func(context.Context) (T, error)) {
	v, err := load(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	serveView(s, w, r, s.ledger.Dashboard)
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	serveView(s, w, r, s.ledger.BalanceHistory)
}

func (s *Server) handleCategorySpending(w http.ResponseWriter, r *http.Request) {
	serveView(s, w, r, s.ledger.CategorySpending)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	serveView(s, w, r, s.ledger.Comparison)
}

func (s *Server) handleCategoryComparison(w http.ResponseWriter, r *http.Request) {
	serveView(s, w, r, s.ledger.CategoryComparison)
}

func (s *Server) handleMonthlyComparison(w http.ResponseWriter, r *http.Request) {
	serveView(s, w, r, s.ledger.MonthlyComparison)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]
	serveView(s, w, r, func(ctx context.Context) (core.MonthSummary, error) {
		return s.ledger.MonthSummary(ctx, month)
	})
}

// handleExport streams an XLSX snapshot. The workbook is built in memory so
// a failure can still be reported as JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteWorkbook(r.Context(), s.ledger, &buf); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="budget-export.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
