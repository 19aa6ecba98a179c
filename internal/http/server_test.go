package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"budgetit/internal/core"
	applog "budgetit/internal/log"
	"budgetit/internal/services"
	"budgetit/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	ledger := services.NewLedgerService(repo, nil)
	logger := applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
	srv := NewServer(":0", ledger, Options{Logger: logger})
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = ledger.Close()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Fatalf("metrics status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAccountsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Checking","type":"checking","balance":"100.50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	res := decode[core.WriteResult](t, rr)
	if res.ID != 1 || res.Changes != 1 {
		t.Fatalf("unexpected write result %+v", res)
	}

	rr = do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Checking","type":"savings","balance":0}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d, want 409", rr.Code)
	}
	if e := decode[errorResponse](t, rr); e.Error == "" {
		t.Fatal("expected error message")
	}

	rr = do(t, srv, http.MethodGet, "/api/accounts", "")
	accounts := decode[[]core.Account](t, rr)
	if len(accounts) != 1 || accounts[0].Name != "Checking" || accounts[0].Balance.String() != "100.5" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}

	rr = do(t, srv, http.MethodDelete, "/api/accounts/99", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete absent status=%d", rr.Code)
	}
	if res := decode[core.WriteResult](t, rr); res.Changes != 0 {
		t.Fatalf("expected 0 changes, got %+v", res)
	}

	rr = do(t, srv, http.MethodDelete, "/api/accounts/1", "")
	if res := decode[core.WriteResult](t, rr); rr.Code != http.StatusOK || res.Changes != 1 {
		t.Fatalf("delete status=%d result=%+v", rr.Code, res)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"bad account type", http.MethodPost, "/api/accounts", `{"name":"X","type":"crypto","balance":0}`, http.StatusBadRequest},
		{"empty name", http.MethodPost, "/api/accounts", `{"name":"  ","type":"checking","balance":0}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/accounts", `{"name":`, http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/api/categories", `{"name":"Food"}{"name":"Rent"}`, http.StatusBadRequest},
		{"bad color", http.MethodPost, "/api/categories", `{"name":"Food","color":"red"}`, http.StatusBadRequest},
		{"non numeric id", http.MethodDelete, "/api/accounts/abc", "", http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/api/transactions?filter=pending", "", http.StatusBadRequest},
		{"bad source", http.MethodDelete, "/api/transactions/1?source=transfer", "", http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/budgets/2024-13/summary", "", http.StatusBadRequest},
		{"budget for unknown category", http.MethodPut, "/api/budgets", `{"categoryId":7,"amount":"10","month":"2024-01"}`, http.StatusBadRequest},
		{"transaction for unknown account", http.MethodPost, "/api/transactions", `{"type":"income","accountId":5,"amount":"10","date":"2024-01-01"}`, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/accounts", "", http.StatusMethodNotAllowed},
		{"post to budgets", http.MethodPost, "/api/budgets", `{}`, http.StatusMethodNotAllowed},
		{"put on transaction id", http.MethodPut, "/api/transactions/1", `{}`, http.StatusMethodNotAllowed},
		{"post to month summary", http.MethodPost, "/api/budgets/2024-01/summary", `{}`, http.StatusMethodNotAllowed},
		{"post to health", http.MethodPost, "/healthz", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.want, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Fatalf("Content-Type = %q", ct)
			}
		})
	}
}

func TestTransactionsAndViews(t *testing.T) {
	srv := newTestServer(t)

	setup := []struct{ method, target, body string }{
		{http.MethodPost, "/api/accounts", `{"name":"Checking","type":"checking","balance":"1000"}`},
		{http.MethodPost, "/api/categories", `{"name":"Food"}`},
		{http.MethodPut, "/api/budgets", `{"categoryId":1,"amount":"300","month":"2024-01"}`},
		{http.MethodPost, "/api/transactions", `{"type":"income","accountId":1,"amount":"2500","description":"salary","transactionType":"actual","date":"2024-01-01"}`},
		{http.MethodPost, "/api/transactions", `{"type":"expense","accountId":1,"categoryId":1,"amount":"400","transactionType":"projected","date":"2024-01-05"}`},
		{http.MethodPost, "/api/transactions", `{"type":"expense","accountId":1,"categoryId":1,"amount":"120.25","date":"2024-01-10"}`},
	}
	for _, s := range setup {
		rr := do(t, srv, s.method, s.target, s.body)
		if rr.Code != http.StatusCreated && rr.Code != http.StatusOK {
			t.Fatalf("%s %s status=%d body=%s", s.method, s.target, rr.Code, rr.Body.String())
		}
	}

	txs := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if txs[0].Date.String() != "2024-01-10" || txs[0].Kind != core.Actual {
		t.Fatalf("unexpected first transaction %+v", txs[0])
	}

	actual := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions?filter=actual", ""))
	if len(actual) != 2 {
		t.Fatalf("expected 2 actual transactions, got %d", len(actual))
	}

	spending := decode[[]core.CategoryTotal](t, do(t, srv, http.MethodGet, "/api/dashboard/category-spending", ""))
	if len(spending) != 1 || spending[0].Name != "Food" || spending[0].Value.String() != "120.25" {
		t.Fatalf("unexpected spending %+v", spending)
	}

	cmp := decode[[]core.CategoryComparison](t, do(t, srv, http.MethodGet, "/api/comparison/categories", ""))
	if len(cmp) != 1 || cmp[0].Projected.String() != "400" || cmp[0].Variance.String() != "279.75" {
		t.Fatalf("unexpected comparison %+v", cmp)
	}

	summary := decode[core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/budgets/2024-01/summary", ""))
	if len(summary.Rows) != 1 || summary.Rows[0].Remaining.String() != "179.75" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "balanceHistory") {
		t.Fatalf("dashboard status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/comparison", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "monthly") {
		t.Fatalf("comparison status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Both feeds hold id 1; a scoped delete only touches the income row.
	rr = do(t, srv, http.MethodDelete, "/api/transactions/1?source=income", "")
	if res := decode[core.WriteResult](t, rr); res.Changes != 1 {
		t.Fatalf("scoped delete result %+v", res)
	}
	rr = do(t, srv, http.MethodDelete, "/api/transactions/2", "")
	if res := decode[core.WriteResult](t, rr); res.Changes != 1 {
		t.Fatalf("delete result %+v", res)
	}

	spending = decode[[]core.CategoryTotal](t, do(t, srv, http.MethodGet, "/api/dashboard/category-spending", ""))
	if len(spending) != 0 {
		t.Fatalf("only a projected expense is left, got spending %+v", spending)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Checking","type":"checking","balance":"10"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","accountId":1,"amount":"42","date":"2024-02-01"}`)

	rr := do(t, srv, http.MethodGet, "/api/export.xlsx", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("Content-Type = %q", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Transactions")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[1][3] != "Checking" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	ledger := services.NewLedgerService(repo, nil)
	defer ledger.Close()
	srv := NewServer(":0", ledger, Options{
		Logger:             applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard}),
		RateLimitPerMinute: 2,
	})
	defer srv.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodDelete, "/api/accounts/1", ""); rr.Code != http.StatusOK {
			t.Fatalf("write %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodDelete, "/api/accounts/1", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/accounts", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

func TestTrustedProxiesKeyRateLimitByForwardedClient(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	ledger := services.NewLedgerService(repo, nil)
	defer ledger.Close()
	srv := NewServer(":0", ledger, Options{
		Logger:             applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard}),
		RateLimitPerMinute: 1,
		TrustedProxies:     []string{"not-a-cidr", "10.0.0.0/8"},
	})
	defer srv.Shutdown(context.Background())

	deleteVia := func(client string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/accounts/1", nil)
		req.RemoteAddr = "10.1.2.3:4000"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := deleteVia("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first client status=%d", code)
	}
	if code := deleteVia("198.51.100.2"); code != http.StatusOK {
		t.Fatalf("second client behind the same proxy was limited, status=%d", code)
	}
	if code := deleteVia("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeated client, got %d", code)
	}
}
