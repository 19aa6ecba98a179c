package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"budgetit/internal/core"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP.
const timestampLayout = "2006-01-02 15:04:05"

type Account struct {
	ID        int64           `db:"id"`
	Name      string          `db:"name"`
	Type      string          `db:"type"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt string          `db:"created_at"`
	UpdatedAt string          `db:"updated_at"`
}

type Category struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Color       sql.NullString `db:"color"`
	CreatedAt   string         `db:"created_at"`
}

type Budget struct {
	ID         int64           `db:"id"`
	CategoryID int64           `db:"category_id"`
	Amount     decimal.Decimal `db:"amount"`
	Month      string          `db:"month"`
	CreatedAt  string          `db:"created_at"`
	UpdatedAt  string          `db:"updated_at"`
}

type Income struct {
	ID            int64           `db:"id"`
	AccountID     int64           `db:"account_id"`
	Amount        decimal.Decimal `db:"amount"`
	Description   sql.NullString  `db:"description"`
	Kind          string          `db:"kind"`
	Date          string          `db:"date"`
	ProjectedDate sql.NullString  `db:"projected_date"`
	CreatedAt     string          `db:"created_at"`
}

type Expense struct {
	ID            int64           `db:"id"`
	AccountID     int64           `db:"account_id"`
	CategoryID    sql.NullInt64   `db:"category_id"`
	Amount        decimal.Decimal `db:"amount"`
	Description   sql.NullString  `db:"description"`
	Kind          string          `db:"kind"`
	Date          string          `db:"date"`
	ProjectedDate sql.NullString  `db:"projected_date"`
	CreatedAt     string          `db:"created_at"`
}

// Aggregation rows: one per source row, summed in Go so amounts stay decimal.
type (
	accountBalanceRow struct {
		Day     string          `db:"day"`
		Balance decimal.Decimal `db:"balance"`
	}

	categoryAmountRow struct {
		CategoryID int64           `db:"category_id"`
		Name       string          `db:"name"`
		Kind       string          `db:"kind"`
		Amount     decimal.Decimal `db:"amount"`
	}

	monthAmountRow struct {
		Date   string          `db:"date"`
		Kind   string          `db:"kind"`
		Amount decimal.Decimal `db:"amount"`
	}

	budgetAmountRow struct {
		CategoryID int64           `db:"category_id"`
		Name       string          `db:"name"`
		Amount     decimal.Decimal `db:"amount"`
	}
)

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Rows written by other tools may carry RFC 3339 timestamps.
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.UTC()
}

func parseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date %q: %w", s, err)
	}
	return d, nil
}

func parseOptionalDate(ns sql.NullString) (*core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := parseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func (a Account) toCore() core.Account {
	return core.Account{
		ID:        a.ID,
		Name:      a.Name,
		Type:      core.AccountType(a.Type),
		Balance:   a.Balance,
		CreatedAt: parseTimestamp(a.CreatedAt),
		UpdatedAt: parseTimestamp(a.UpdatedAt),
	}
}

func (c Category) toCore() core.Category {
	return core.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description.String,
		Color:       c.Color.String,
		CreatedAt:   parseTimestamp(c.CreatedAt),
	}
}

func (b Budget) toCore() core.Budget {
	return core.Budget{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Amount:     b.Amount,
		Month:      b.Month,
		CreatedAt:  parseTimestamp(b.CreatedAt),
		UpdatedAt:  parseTimestamp(b.UpdatedAt),
	}
}

func (i Income) toCore() (core.IncomeEntry, error) {
	date, err := parseDate(i.Date)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	projected, err := parseOptionalDate(i.ProjectedDate)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	return core.IncomeEntry{
		ID:            i.ID,
		AccountID:     i.AccountID,
		Amount:        i.Amount,
		Description:   i.Description.String,
		Kind:          core.EntryKind(i.Kind),
		Date:          date,
		ProjectedDate: projected,
		CreatedAt:     parseTimestamp(i.CreatedAt),
	}, nil
}

func (e Expense) toCore() (core.ExpenseEntry, error) {
	date, err := parseDate(e.Date)
	if err != nil {
		return core.ExpenseEntry{}, err
	}
	projected, err := parseOptionalDate(e.ProjectedDate)
	if err != nil {
		return core.ExpenseEntry{}, err
	}
	var categoryID *int64
	if e.CategoryID.Valid {
		id := e.CategoryID.Int64
		categoryID = &id
	}
	return core.ExpenseEntry{
		ID:            e.ID,
		AccountID:     e.AccountID,
		CategoryID:    categoryID,
		Amount:        e.Amount,
		Description:   e.Description.String,
		Kind:          core.EntryKind(e.Kind),
		Date:          date,
		ProjectedDate: projected,
		CreatedAt:     parseTimestamp(e.CreatedAt),
	}, nil
}
