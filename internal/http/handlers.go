package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"budgetit/internal/core"
	applog "budgetit/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}
	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	cs := s.ledger.CacheStats()
	checks["cache"] = map[string]any{"entries": cs.Size}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, security and cache counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	sm := s.detector.GetMetrics()
	rm := s.limiter.GetMetrics()
	cs := s.ledger.CacheStats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("http_response_time_avg_ms", "gauge", "Average response time", tm.AverageResponseTime().Milliseconds())
	metric("security_blocked_requests_total", "counter", "Requests blocked as suspicious", sm.BlockedRequests)
	metric("rate_limit_rejected_total", "counter", "Writes rejected by the rate limiter", rm.Rejected)
	metric("rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rm.ClientCount)
	metric("view_cache_entries", "gauge", "Cached ledger views", cs.Size)
	metric("view_cache_hits_total", "counter", "View cache hits", cs.Hits)
	metric("view_cache_misses_total", "counter", "View cache misses", cs.Misses)
}

// respondWrite answers a successful mutation with {id, changes}.
func (s *Server) respondWrite(w http.ResponseWriter, r *http.Request, op, record string, status int, res core.WriteResult) {
	s.events.LogWrite(r.Context(), op, record, res.ID, res.Changes)
	writeJSON(w, status, res)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var in core.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	res, err := s.ledger.AddAccount(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.respondWrite(w, r, applog.OpCreate, "account", http.StatusCreated, res)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	res, err := s.ledger.DeleteAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	s.respondWrite(w, r, applog.OpDelete, "account", http.StatusOK, res)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in core.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	res, err := s.ledger.AddCategory(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.respondWrite(w, r, applog.OpCreate, "category", http.StatusCreated, res)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	res, err := s.ledger.DeleteCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	s.respondWrite(w, r, applog.OpDelete, "category", http.StatusOK, res)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, applog.OpUpsert, err)
		return
	}
	res, err := s.ledger.UpsertBudget(r.Context(), in)
	if err != nil {
		s.writeError(w, r, applog.OpUpsert, err)
		return
	}
	s.respondWrite(w, r, applog.OpUpsert, "budget", http.StatusOK, res)
}
