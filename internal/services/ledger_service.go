package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetit/internal/cache"
	"budgetit/internal/core"
)

// Store is the persistence surface the ledger service needs.
// *storage.SQLiteRepository satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	AddAccount(ctx context.Context, in core.AccountInput) (core.WriteResult, error)
	DeleteAccount(ctx context.Context, id int64) (core.WriteResult, error)

	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	AddCategory(ctx context.Context, in core.CategoryInput) (core.WriteResult, error)
	DeleteCategory(ctx context.Context, id int64) (core.WriteResult, error)

	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, in core.BudgetInput) (core.WriteResult, error)

	ListTransactions(ctx context.Context, filter core.Filter) ([]core.Transaction, error)
	AddTransaction(ctx context.Context, in core.TransactionInput) (core.WriteResult, error)
	DeleteTransaction(ctx context.Context, id int64) (core.WriteResult, error)
	DeleteTransactionFrom(ctx context.Context, source core.Source, id int64) (core.WriteResult, error)

	BalanceHistory(ctx context.Context) ([]core.BalancePoint, error)
	CategorySpending(ctx context.Context) ([]core.CategoryTotal, error)
	CategoryComparison(ctx context.Context) ([]core.CategoryComparison, error)
	MonthlyComparison(ctx context.Context) ([]core.MonthlyComparison, error)
	MonthSummary(ctx context.Context, month string) (core.MonthSummary, error)
}

const (
	keyBalanceHistory     = "balance-history"
	keyCategorySpending   = "category-spending"
	keyCategoryComparison = "category-comparison"
	keyMonthlyComparison  = "monthly-comparison"
	keyTransactionsPrefix = "transactions:"
	keyMonthSummaryPrefix = "month-summary:"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 5 * time.Minute
)

// LedgerService validates writes, enforces references between records and
// caches the derived views. Any successful write drops every cached view.
// Cached slices are shared between callers and must not be modified.
type LedgerService struct {
	store Store
	views cache.Cache[any]

	// mu orders invalidations against cache fills. generation is bumped on
	// every invalidation so that a read which started before a write never
	// repopulates the cache with stale data.
	mu         sync.Mutex
	generation uint64
}

// NewLedgerService wires store and views. A nil views gets a default-sized
// LRU cache.
func NewLedgerService(store Store, views cache.Cache[any]) *LedgerService {
	if views == nil {
		views = cache.NewLRUCache[any](defaultCacheSize, defaultCacheTTL)
	}
	return &LedgerService{store: store, views: views}
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *LedgerService) Close() error {
	s.views.Purge()
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// CacheStats reports view cache activity. Caches that keep no counters
// report only their size.
func (s *LedgerService) CacheStats() cache.Stats {
	if st, ok := s.views.(interface{ Stats() cache.Stats }); ok {
		return st.Stats()
	}
	return cache.Stats{Size: s.views.Size()}
}

func (s *LedgerService) invalidate(ctx context.Context, reason string) {
	s.mu.Lock()
	s.generation++
	n := s.views.Purge()
	s.mu.Unlock()
	if n > 0 {
		slog.DebugContext(ctx, "Cached views invalidated", "reason", reason, "count", n)
	}
}

// cachedView serves key from the view cache, loading and storing it on a miss.
func cachedView[T any](ctx context.Context, s *LedgerService, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := s.views.Get(key); ok {
		if typed, ok := v.(T); ok {
			slog.DebugContext(ctx, "View served from cache", "key", key)
			return typed, nil
		}
		slog.WarnContext(ctx, "Dropping cached view of unexpected type", "key", key)
		s.views.Delete(key)
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.views.Set(key, v)
	}
	return v, nil
}

// afterWrite invalidates the cache when a write actually changed something.
func (s *LedgerService) afterWrite(ctx context.Context, op string, res core.WriteResult, err error) (core.WriteResult, error) {
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if res.Changes > 0 {
		s.invalidate(ctx, op)
	}
	return res, nil
}

func (s *LedgerService) requireAccount(ctx context.Context, id int64) error {
	if _, err := s.store.GetAccount(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: account %d does not exist", core.ErrInvalidReference, id)
		}
		return err
	}
	return nil
}

func (s *LedgerService) requireCategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: category %d does not exist", core.ErrInvalidReference, id)
		}
		return err
	}
	return nil
}

// Accounts

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *LedgerService) AddAccount(ctx context.Context, in core.AccountInput) (core.WriteResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Balance = core.NormalizeAmount(in.Balance)
	if err := in.Validate(); err != nil {
		return core.WriteResult{}, fmt.Errorf("add account: %w", err)
	}
	res, err := s.store.AddAccount(ctx, in)
	return s.afterWrite(ctx, "add account", res, err)
}

// DeleteAccount does not touch income or expense rows referencing id.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) (core.WriteResult, error) {
	res, err := s.store.DeleteAccount(ctx, id)
	return s.afterWrite(ctx, "delete account", res, err)
}

// Categories

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *LedgerService) AddCategory(ctx context.Context, in core.CategoryInput) (core.WriteResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return core.WriteResult{}, fmt.Errorf("add category: %w", err)
	}
	res, err := s.store.AddCategory(ctx, in)
	return s.afterWrite(ctx, "add category", res, err)
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id int64) (core.WriteResult, error) {
	res, err := s.store.DeleteCategory(ctx, id)
	return s.afterWrite(ctx, "delete category", res, err)
}

// Budgets

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *LedgerService) UpsertBudget(ctx context.Context, in core.BudgetInput) (core.WriteResult, error) {
	in.Month = strings.TrimSpace(in.Month)
	in.Amount = core.NormalizeAmount(in.Amount)
	if err := in.Validate(); err != nil {
		return core.WriteResult{}, fmt.Errorf("upsert budget: %w", err)
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return core.WriteResult{}, fmt.Errorf("upsert budget: %w", err)
	}
	res, err := s.store.UpsertBudget(ctx, in)
	return s.afterWrite(ctx, "upsert budget", res, err)
}

func (s *LedgerService) MonthSummary(ctx context.Context, month string) (core.MonthSummary, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	summary, err := cachedView(ctx, s, keyMonthSummaryPrefix+month, func(ctx context.Context) (core.MonthSummary, error) {
		return s.store.MonthSummary(ctx, month)
	})
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	return summary, nil
}

// Transactions

func (s *LedgerService) ListTransactions(ctx context.Context, filter core.Filter) ([]core.Transaction, error) {
	if filter == "" {
		filter = core.FilterAll
	}
	if !filter.IsValid() {
		return nil, fmt.Errorf("list transactions: %w %q", core.ErrInvalidFilter, filter)
	}
	txs, err := cachedView(ctx, s, keyTransactionsPrefix+string(filter), func(ctx context.Context) ([]core.Transaction, error) {
		return s.store.ListTransactions(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// AddTransaction checks that the account, and for expenses the category,
// exist before writing. A category on an income entry is dropped. Amounts
// that round to zero cents are rejected.
func (s *LedgerService) AddTransaction(ctx context.Context, in core.TransactionInput) (core.WriteResult, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Amount = core.NormalizeAmount(in.Amount)
	if in.Kind == "" {
		in.Kind = core.Actual
	}
	if in.Source == core.IncomeSource {
		in.CategoryID = nil
	}
	if err := in.Validate(); err != nil {
		return core.WriteResult{}, fmt.Errorf("add transaction: %w", err)
	}
	if err := s.requireAccount(ctx, in.AccountID); err != nil {
		return core.WriteResult{}, fmt.Errorf("add transaction: %w", err)
	}
	if in.CategoryID != nil {
		if err := s.requireCategory(ctx, *in.CategoryID); err != nil {
			return core.WriteResult{}, fmt.Errorf("add transaction: %w", err)
		}
	}
	res, err := s.store.AddTransaction(ctx, in)
	return s.afterWrite(ctx, "add transaction", res, err)
}

// DeleteTransaction removes id from both the income and expense tables.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (core.WriteResult, error) {
	res, err := s.store.DeleteTransaction(ctx, id)
	return s.afterWrite(ctx, "delete transaction", res, err)
}

func (s *LedgerService) DeleteTransactionFrom(ctx context.Context, source core.Source, id int64) (core.WriteResult, error) {
	if !source.IsValid() {
		return core.WriteResult{}, fmt.Errorf("delete transaction: %w %q", core.ErrInvalidSource, source)
	}
	res, err := s.store.DeleteTransactionFrom(ctx, source, id)
	return s.afterWrite(ctx, "delete transaction", res, err)
}

// Views

func (s *LedgerService) BalanceHistory(ctx context.Context) ([]core.BalancePoint, error) {
	v, err := cachedView(ctx, s, keyBalanceHistory, s.store.BalanceHistory)
	if err != nil {
		return nil, fmt.Errorf("balance history: %w", err)
	}
	return v, nil
}

func (s *LedgerService) CategorySpending(ctx context.Context) ([]core.CategoryTotal, error) {
	v, err := cachedView(ctx, s, keyCategorySpending, s.store.CategorySpending)
	if err != nil {
		return nil, fmt.Errorf("category spending: %w", err)
	}
	return v, nil
}

func (s *LedgerService) CategoryComparison(ctx context.Context) ([]core.CategoryComparison, error) {
	v, err := cachedView(ctx, s, keyCategoryComparison, s.store.CategoryComparison)
	if err != nil {
		return nil, fmt.Errorf("category comparison: %w", err)
	}
	return v, nil
}

func (s *LedgerService) MonthlyComparison(ctx context.Context) ([]core.MonthlyComparison, error) {
	v, err := cachedView(ctx, s, keyMonthlyComparison, s.store.MonthlyComparison)
	if err != nil {
		return nil, fmt.Errorf("monthly comparison: %w", err)
	}
	return v, nil
}

// Dashboard loads balance history and category spending concurrently.
func (s *LedgerService) Dashboard(ctx context.Context) (core.Dashboard, error) {
	var d core.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.BalanceHistory, err = s.BalanceHistory(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.CategorySpending, err = s.CategorySpending(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}

// Comparison loads the category and monthly comparisons concurrently.
func (s *LedgerService) Comparison(ctx context.Context) (core.Comparison, error) {
	var c core.Comparison
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c.Categories, err = s.CategoryComparison(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		c.Monthly, err = s.MonthlyComparison(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Comparison{}, fmt.Errorf("comparison: %w", err)
	}
	return c, nil
}
