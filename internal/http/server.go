package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"budgetit/internal/cache"
	"budgetit/internal/core"
	"budgetit/internal/export"
	applog "budgetit/internal/log"
	"budgetit/internal/middleware/ratelimit"
	"budgetit/internal/middleware/security"
	"budgetit/internal/middleware/trace"
)

// Ledger is everything the HTTP layer needs from the ledger service.
type Ledger interface {
	export.Source

	Ping(ctx context.Context) error
	CacheStats() cache.Stats

	AddAccount(ctx context.Context, in core.AccountInput) (core.WriteResult, error)
	DeleteAccount(ctx context.Context, id int64) (core.WriteResult, error)

	AddCategory(ctx context.Context, in core.CategoryInput) (core.WriteResult, error)
	DeleteCategory(ctx context.Context, id int64) (core.WriteResult, error)

	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, in core.BudgetInput) (core.WriteResult, error)
	MonthSummary(ctx context.Context, month string) (core.MonthSummary, error)

	AddTransaction(ctx context.Context, in core.TransactionInput) (core.WriteResult, error)
	DeleteTransaction(ctx context.Context, id int64) (core.WriteResult, error)
	DeleteTransactionFrom(ctx context.Context, source core.Source, id int64) (core.WriteResult, error)

	BalanceHistory(ctx context.Context) ([]core.BalancePoint, error)
	CategorySpending(ctx context.Context) ([]core.CategoryTotal, error)
	CategoryComparison(ctx context.Context) ([]core.CategoryComparison, error)
	Dashboard(ctx context.Context) (core.Dashboard, error)
	Comparison(ctx context.Context) (core.Comparison, error)
}

// Options tunes the server. Zero values get defaults.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration

	// TrustedProxies extend the loopback ranges whose forwarding headers
	// identify the client. Invalid CIDRs are logged and skipped.
	TrustedProxies []string
}

// Server exposes the ledger as a JSON API.
type Server struct {
	http.Server

	ledger    Ledger
	logger    *applog.Logger
	events    *applog.StructuredLogger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	s := &Server{
		ledger:    ledger,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  detector,
		tracer:    trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		startedAt: time.Now(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	// Registered on the root router so a method mismatch answers 405.
	api := apiRoutes{r}

	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleAddAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", s.handleDeleteAccount).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleAddCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleUpsertBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{month}/summary", s.handleMonthSummary).Methods(http.MethodGet)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleAddTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/balance-history", s.handleBalanceHistory).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/category-spending", s.handleCategorySpending).Methods(http.MethodGet)
	api.HandleFunc("/comparison", s.handleComparison).Methods(http.MethodGet)
	api.HandleFunc("/comparison/categories", s.handleCategoryComparison).Methods(http.MethodGet)
	api.HandleFunc("/comparison/monthly", s.handleMonthlyComparison).Methods(http.MethodGet)

	api.HandleFunc("/export.xlsx", s.handleExport).Methods(http.MethodGet)

	// Outermost first.
	chain := []func(http.Handler) http.Handler{
		s.tracer.Middleware,
		applog.Middleware(s.logger),
		applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}),
	}
	var h http.Handler = r
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// apiRoutes registers paths under /api on the root router.
type apiRoutes struct{ r *mux.Router }

func (a apiRoutes) HandleFunc(path string, f func(http.ResponseWriter, *http.Request)) *mux.Route {
	return a.r.HandleFunc("/api"+path, f)
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
