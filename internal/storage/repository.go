package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"budgetit/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the ledger store: accounts, categories, income,
// expenses and budgets in one SQLite file, plus the dashboard aggregations.
type SQLiteRepository struct {
	db      *sqlx.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dataSourceName(dbPath)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite's own locking does the rest.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func dataSourceName(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return classify("ping database", r.db.PingContext(ctx))
}

// inTx runs fn inside a single SQL transaction.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertResult(res sql.Result) (core.WriteResult, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return core.WriteResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.WriteResult{}, err
	}
	return core.WriteResult{ID: id, Changes: n}, nil
}

func deleteResult(id int64, res sql.Result) (core.WriteResult, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return core.WriteResult{}, err
	}
	return core.WriteResult{ID: id, Changes: n}, nil
}

// ListAccounts returns all accounts ordered by name.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	accounts := make([]core.Account, len(rows))
	for i, a := range rows {
		accounts[i] = a.toCore()
	}
	return accounts, nil
}

// GetAccount returns core.ErrNotFound when id does not exist.
func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, classify(fmt.Sprintf("get account %d", id), err)
	}
	return a.toCore(), nil
}

// AddAccount fails with core.ErrConstraintViolation when the name is taken.
func (r *SQLiteRepository) AddAccount(ctx context.Context, in core.AccountInput) (core.WriteResult, error) {
	res, err := r.queries.CreateAccount(ctx, CreateAccountParams{
		Name:    in.Name,
		Type:    string(in.Type),
		Balance: in.Balance,
	})
	if err != nil {
		return core.WriteResult{}, classify("create account", err)
	}
	result, err := insertResult(res)
	if err != nil {
		return core.WriteResult{}, classify("create account", err)
	}

	slog.InfoContext(ctx, "Account saved",
		"id", result.ID,
		"name", in.Name,
		"type", in.Type,
		"balance", core.FormatAmount(in.Balance))

	return result, nil
}

// DeleteAccount leaves income and expense rows that reference the account in
// place. Deleting an absent id reports zero changes.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) (core.WriteResult, error) {
	res, err := r.queries.DeleteAccount(ctx, id)
	if err != nil {
		return core.WriteResult{}, classify("delete account", err)
	}
	result, err := deleteResult(id, res)
	if err != nil {
		return core.WriteResult{}, classify("delete account", err)
	}
	slog.InfoContext(ctx, "Account deleted", "id", id, "changes", result.Changes)
	return result, nil
}

// ListCategories returns all categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, classify("list categories", err)
	}
	categories := make([]core.Category, len(rows))
	for i, c := range rows {
		categories[i] = c.toCore()
	}
	return categories, nil
}

// GetCategory returns core.ErrNotFound when id does not exist.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, classify(fmt.Sprintf("get category %d", id), err)
	}
	return c.toCore(), nil
}

// AddCategory fails with core.ErrConstraintViolation when the name is taken.
// An empty color is stored as core.DefaultColor.
func (r *SQLiteRepository) AddCategory(ctx context.Context, in core.CategoryInput) (core.WriteResult, error) {
	if in.Color == "" {
		in.Color = core.DefaultColor
	}
	res, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		Name:        in.Name,
		Description: nullString(in.Description),
		Color:       nullString(in.Color),
	})
	if err != nil {
		return core.WriteResult{}, classify("create category", err)
	}
	result, err := insertResult(res)
	if err != nil {
		return core.WriteResult{}, classify("create category", err)
	}

	slog.InfoContext(ctx, "Category saved", "id", result.ID, "name", in.Name, "color", in.Color)
	return result, nil
}

// DeleteCategory removes the category's budgets and then the category in one
// transaction. The result reports the category row only.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) (core.WriteResult, error) {
	var (
		result  core.WriteResult
		budgets int64
	)
	err := r.inTx(ctx, func(q *Queries) error {
		res, err := q.DeleteBudgetsByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("delete budgets: %w", err)
		}
		if budgets, err = res.RowsAffected(); err != nil {
			return err
		}

		res, err = q.DeleteCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("delete category row: %w", err)
		}
		result, err = deleteResult(id, res)
		return err
	})
	if err != nil {
		return core.WriteResult{}, classify("delete category", err)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id, "changes", result.Changes, "budgets_removed", budgets)
	return result, nil
}

// ListBudgets returns budgets newest month first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, classify("list budgets", err)
	}
	budgets := make([]core.Budget, len(rows))
	for i, b := range rows {
		budgets[i] = b.toCore()
	}
	return budgets, nil
}

// UpsertBudget sets the budget for a (category, month) pair, replacing any
// previous amount.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, in core.BudgetInput) (core.WriteResult, error) {
	id, err := r.queries.UpsertBudget(ctx, UpsertBudgetParams{
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Month:      in.Month,
	})
	if err != nil {
		return core.WriteResult{}, classify("upsert budget", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"id", id,
		"category_id", in.CategoryID,
		"month", in.Month,
		"amount", core.FormatAmount(in.Amount))

	return core.WriteResult{ID: id, Changes: 1}, nil
}

// ListTransactions merges income and expense rows matching filter into one
// feed, newest date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter core.Filter) ([]core.Transaction, error) {
	if !filter.IsValid() {
		return nil, fmt.Errorf("list transactions: %w %q", core.ErrInvalidFilter, filter)
	}

	incomeRows, err := r.queries.ListIncome(ctx, string(filter))
	if err != nil {
		return nil, classify("list income", err)
	}
	expenseRows, err := r.queries.ListExpenses(ctx, string(filter))
	if err != nil {
		return nil, classify("list expenses", err)
	}

	income := make([]core.Transaction, len(incomeRows))
	for i, row := range incomeRows {
		entry, err := row.toCore()
		if err != nil {
			return nil, classify(fmt.Sprintf("read income %d", row.ID), err)
		}
		income[i] = entry.Transaction()
	}
	expense := make([]core.Transaction, len(expenseRows))
	for i, row := range expenseRows {
		entry, err := row.toCore()
		if err != nil {
			return nil, classify(fmt.Sprintf("read expense %d", row.ID), err)
		}
		expense[i] = entry.Transaction()
	}

	return mergeTransactions(income, expense), nil
}

// AddTransaction routes the entry to the income or expense table. Income rows
// never carry a category.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, in core.TransactionInput) (core.WriteResult, error) {
	kind := in.Kind
	if kind == "" {
		kind = core.Actual
	}

	var (
		res sql.Result
		err error
	)
	switch in.Source {
	case core.IncomeSource:
		res, err = r.queries.CreateIncome(ctx, CreateIncomeParams{
			AccountID:     in.AccountID,
			Amount:        in.Amount,
			Description:   nullString(in.Description),
			Kind:          string(kind),
			Date:          in.Date.String(),
			ProjectedDate: nullDate(in.ProjectedDate),
		})
	case core.ExpenseSource:
		res, err = r.queries.CreateExpense(ctx, CreateExpenseParams{
			AccountID:     in.AccountID,
			CategoryID:    nullID(in.CategoryID),
			Amount:        in.Amount,
			Description:   nullString(in.Description),
			Kind:          string(kind),
			Date:          in.Date.String(),
			ProjectedDate: nullDate(in.ProjectedDate),
		})
	default:
		return core.WriteResult{}, fmt.Errorf("add transaction: %w %q", core.ErrInvalidSource, in.Source)
	}
	if err != nil {
		return core.WriteResult{}, classify("create "+string(in.Source), err)
	}
	result, err := insertResult(res)
	if err != nil {
		return core.WriteResult{}, classify("create "+string(in.Source), err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", result.ID,
		"source", in.Source,
		"kind", kind,
		"account_id", in.AccountID,
		"amount", core.FormatAmount(in.Amount),
		"date", in.Date.String())

	return result, nil
}

// DeleteTransaction deletes id from both the expense and income tables in one
// transaction. Ids are independent per table, so the result cannot say which
// table matched; Changes is the total number of rows removed.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (core.WriteResult, error) {
	var changes int64
	err := r.inTx(ctx, func(q *Queries) error {
		res, err := q.DeleteExpense(ctx, id)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		changes += n

		if res, err = q.DeleteIncome(ctx, id); err != nil {
			return fmt.Errorf("delete income: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		changes += n
		return nil
	})
	if err != nil {
		return core.WriteResult{}, classify("delete transaction", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "changes", changes)
	return core.WriteResult{ID: id, Changes: changes}, nil
}

// DeleteTransactionFrom deletes id from the table named by source only.
func (r *SQLiteRepository) DeleteTransactionFrom(ctx context.Context, source core.Source, id int64) (core.WriteResult, error) {
	var (
		res sql.Result
		err error
	)
	switch source {
	case core.IncomeSource:
		res, err = r.queries.DeleteIncome(ctx, id)
	case core.ExpenseSource:
		res, err = r.queries.DeleteExpense(ctx, id)
	default:
		return core.WriteResult{}, fmt.Errorf("delete transaction: %w %q", core.ErrInvalidSource, source)
	}
	if err != nil {
		return core.WriteResult{}, classify("delete "+string(source), err)
	}
	result, err := deleteResult(id, res)
	if err != nil {
		return core.WriteResult{}, classify("delete "+string(source), err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "source", source, "changes", result.Changes)
	return result, nil
}

// BalanceHistory sums account balances by account creation day for the 30
// most recent days, oldest first. It reflects balances as entered when the
// accounts were created, not a running balance over transactions.
func (r *SQLiteRepository) BalanceHistory(ctx context.Context) ([]core.BalancePoint, error) {
	rows, err := r.queries.AccountBalancesByDay(ctx)
	if err != nil {
		return nil, classify("balance history", err)
	}
	return summarizeBalances(rows, balanceHistoryDays), nil
}

// CategorySpending totals actual expenses per category, largest first.
func (r *SQLiteRepository) CategorySpending(ctx context.Context) ([]core.CategoryTotal, error) {
	rows, err := r.queries.CategoryExpenseAmounts(ctx)
	if err != nil {
		return nil, classify("category spending", err)
	}
	return summarizeSpending(rows), nil
}

// CategoryComparison reports projected vs actual expenses per category.
func (r *SQLiteRepository) CategoryComparison(ctx context.Context) ([]core.CategoryComparison, error) {
	rows, err := r.queries.CategoryExpenseAmounts(ctx)
	if err != nil {
		return nil, classify("category comparison", err)
	}
	return compareCategories(rows), nil
}

// MonthlyComparison reports projected and actual income and expenses per
// calendar month, oldest first.
func (r *SQLiteRepository) MonthlyComparison(ctx context.Context) ([]core.MonthlyComparison, error) {
	income, err := r.queries.IncomeMonthAmounts(ctx)
	if err != nil {
		return nil, classify("monthly income", err)
	}
	expense, err := r.queries.ExpenseMonthAmounts(ctx)
	if err != nil {
		return nil, classify("monthly expenses", err)
	}
	out, err := compareMonths(income, expense)
	if err != nil {
		return nil, classify("monthly comparison", err)
	}
	return out, nil
}

// MonthSummary compares each category's budget for month with its actual
// spending in that month.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, month string) (core.MonthSummary, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	budgets, err := r.queries.BudgetsForMonth(ctx, month)
	if err != nil {
		return core.MonthSummary{}, classify("month budgets", err)
	}
	spending, err := r.queries.CategoryExpenseAmountsForMonth(ctx, month)
	if err != nil {
		return core.MonthSummary{}, classify("month spending", err)
	}
	return summarizeMonth(month, budgets, spending), nil
}
