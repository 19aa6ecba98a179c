package storage

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
}

// Queries holds the SQL for every store operation. It runs against either the
// database handle or an open transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sqlx.Tx) *Queries {
	return &Queries{db: tx}
}

const listAccounts = `
SELECT id, name, type, balance, created_at, updated_at
FROM accounts
ORDER BY name ASC, id ASC`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	var items []Account
	err := sqlx.SelectContext(ctx, q.db, &items, listAccounts)
	return items, err
}

const getAccount = `
SELECT id, name, type, balance, created_at, updated_at
FROM accounts
WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := sqlx.GetContext(ctx, q.db, &a, getAccount, id)
	return a, err
}

const createAccount = `
INSERT INTO accounts (name, type, balance)
VALUES (?, ?, ?)`

type CreateAccountParams struct {
	Name    string
	Type    string
	Balance decimal.Decimal
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createAccount, arg.Name, arg.Type, arg.Balance)
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteAccount, id)
}

const listCategories = `
SELECT id, name, description, color, created_at
FROM categories
ORDER BY name ASC, id ASC`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	var items []Category
	err := sqlx.SelectContext(ctx, q.db, &items, listCategories)
	return items, err
}

const getCategory = `
SELECT id, name, description, color, created_at
FROM categories
WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := sqlx.GetContext(ctx, q.db, &c, getCategory, id)
	return c, err
}

const createCategory = `
INSERT INTO categories (name, description, color)
VALUES (?, ?, ?)`

type CreateCategoryParams struct {
	Name        string
	Description sql.NullString
	Color       sql.NullString
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createCategory, arg.Name, arg.Description, arg.Color)
}

const deleteBudgetsByCategory = `DELETE FROM budgets WHERE category_id = ?`

func (q *Queries) DeleteBudgetsByCategory(ctx context.Context, categoryID int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteBudgetsByCategory, categoryID)
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteCategory, id)
}

const listBudgets = `
SELECT id, category_id, amount, month, created_at, updated_at
FROM budgets
ORDER BY month DESC, id ASC`

func (q *Queries) ListBudgets(ctx context.Context) ([]Budget, error) {
	var items []Budget
	err := sqlx.SelectContext(ctx, q.db, &items, listBudgets)
	return items, err
}

// upsertBudget keeps id and created_at of an existing (category, month) row.
const upsertBudget = `
INSERT INTO budgets (category_id, amount, month)
VALUES (?, ?, ?)
ON CONFLICT (category_id, month) DO UPDATE SET
    amount = excluded.amount,
    updated_at = CURRENT_TIMESTAMP
RETURNING id`

type UpsertBudgetParams struct {
	CategoryID int64
	Amount     decimal.Decimal
	Month      string
}

func (q *Queries) UpsertBudget(ctx context.Context, arg UpsertBudgetParams) (int64, error) {
	var id int64
	err := q.db.QueryRowxContext(ctx, upsertBudget, arg.CategoryID, arg.Amount, arg.Month).Scan(&id)
	return id, err
}

const listIncome = `
SELECT id, account_id, amount, description, kind, date, projected_date, created_at
FROM income
WHERE ? = 'all' OR kind = ?
ORDER BY date DESC, created_at DESC, id DESC`

func (q *Queries) ListIncome(ctx context.Context, filter string) ([]Income, error) {
	var items []Income
	err := sqlx.SelectContext(ctx, q.db, &items, listIncome, filter, filter)
	return items, err
}

const listExpenses = `
SELECT id, account_id, category_id, amount, description, kind, date, projected_date, created_at
FROM expenses
WHERE ? = 'all' OR kind = ?
ORDER BY date DESC, created_at DESC, id DESC`

func (q *Queries) ListExpenses(ctx context.Context, filter string) ([]Expense, error) {
	var items []Expense
	err := sqlx.SelectContext(ctx, q.db, &items, listExpenses, filter, filter)
	return items, err
}

const createIncome = `
INSERT INTO income (account_id, amount, description, kind, date, projected_date)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateIncomeParams struct {
	AccountID     int64
	Amount        decimal.Decimal
	Description   sql.NullString
	Kind          string
	Date          string
	ProjectedDate sql.NullString
}

func (q *Queries) CreateIncome(ctx context.Context, arg CreateIncomeParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createIncome,
		arg.AccountID, arg.Amount, arg.Description, arg.Kind, arg.Date, arg.ProjectedDate)
}

const createExpense = `
INSERT INTO expenses (account_id, category_id, amount, description, kind, date, projected_date)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
	AccountID     int64
	CategoryID    sql.NullInt64
	Amount        decimal.Decimal
	Description   sql.NullString
	Kind          string
	Date          string
	ProjectedDate sql.NullString
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createExpense,
		arg.AccountID, arg.CategoryID, arg.Amount, arg.Description, arg.Kind, arg.Date, arg.ProjectedDate)
}

const deleteIncome = `DELETE FROM income WHERE id = ?`

func (q *Queries) DeleteIncome(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteIncome, id)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteExpense, id)
}

const accountBalancesByDay = `
SELECT date(created_at) AS day, balance
FROM accounts
ORDER BY day ASC, id ASC`

func (q *Queries) AccountBalancesByDay(ctx context.Context) ([]accountBalanceRow, error) {
	var rows []accountBalanceRow
	err := sqlx.SelectContext(ctx, q.db, &rows, accountBalancesByDay)
	return rows, err
}

// Expenses whose category was deleted drop out of the join.
const categoryExpenseAmounts = `
SELECT c.id AS category_id, c.name AS name, e.kind AS kind, e.amount AS amount
FROM expenses e
JOIN categories c ON c.id = e.category_id
ORDER BY c.name ASC, c.id ASC`

func (q *Queries) CategoryExpenseAmounts(ctx context.Context) ([]categoryAmountRow, error) {
	var rows []categoryAmountRow
	err := sqlx.SelectContext(ctx, q.db, &rows, categoryExpenseAmounts)
	return rows, err
}

const categoryExpenseAmountsForMonth = `
SELECT c.id AS category_id, c.name AS name, e.kind AS kind, e.amount AS amount
FROM expenses e
JOIN categories c ON c.id = e.category_id
WHERE substr(e.date, 1, 7) = ?
ORDER BY c.name ASC, c.id ASC`

func (q *Queries) CategoryExpenseAmountsForMonth(ctx context.Context, month string) ([]categoryAmountRow, error) {
	var rows []categoryAmountRow
	err := sqlx.SelectContext(ctx, q.db, &rows, categoryExpenseAmountsForMonth, month)
	return rows, err
}

const incomeMonthAmounts = `
SELECT date, kind, amount
FROM income
ORDER BY date ASC`

func (q *Queries) IncomeMonthAmounts(ctx context.Context) ([]monthAmountRow, error) {
	var rows []monthAmountRow
	err := sqlx.SelectContext(ctx, q.db, &rows, incomeMonthAmounts)
	return rows, err
}

const expenseMonthAmounts = `
SELECT date, kind, amount
FROM expenses
ORDER BY date ASC`

func (q *Queries) ExpenseMonthAmounts(ctx context.Context) ([]monthAmountRow, error) {
	var rows []monthAmountRow
	err := sqlx.SelectContext(ctx, q.db, &rows, expenseMonthAmounts)
	return rows, err
}

const budgetsForMonth = `
SELECT b.category_id AS category_id, c.name AS name, b.amount AS amount
FROM budgets b
JOIN categories c ON c.id = b.category_id
WHERE b.month = ?
ORDER BY c.name ASC`

func (q *Queries) BudgetsForMonth(ctx context.Context, month string) ([]budgetAmountRow, error) {
	var rows []budgetAmountRow
	err := sqlx.SelectContext(ctx, q.db, &rows, budgetsForMonth, month)
	return rows, err
}
