package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Retirement AccountType = "401k"
	Stocks     AccountType = "stocks"
	CreditCard AccountType = "credit_card"
	Loan       AccountType = "loan"
	Other      AccountType = "other"
)

const (
	Actual    EntryKind = "actual"
	Projected EntryKind = "projected"
)

const (
	IncomeSource  Source = "income"
	ExpenseSource Source = "expense"
)

const (
	FilterAll       Filter = "all"
	FilterActual    Filter = "actual"
	FilterProjected Filter = "projected"
)

// DefaultColor is used for categories created without a display color.
const DefaultColor = "#007bff"

const maxDescriptionLen = 200

type (
	// AccountType is the kind of financial account.
	AccountType string

	// EntryKind tells whether a transaction occurred or is forecast.
	EntryKind string

	// Source names the table a transaction is stored in.
	Source string

	// Filter selects transactions by kind when listing the merged feed.
	Filter string

	Account struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Type      AccountType     `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}

	Category struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Color       string    `json:"color"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	IncomeEntry struct {
		ID            int64
		AccountID     int64
		Amount        decimal.Decimal
		Description   string
		Kind          EntryKind
		Date          Date
		ProjectedDate *Date
		CreatedAt     time.Time
	}

	ExpenseEntry struct {
		ID            int64
		AccountID     int64
		CategoryID    *int64
		Amount        decimal.Decimal
		Description   string
		Kind          EntryKind
		Date          Date
		ProjectedDate *Date
		CreatedAt     time.Time
	}

	Budget struct {
		ID         int64           `json:"id"`
		CategoryID int64           `json:"categoryId"`
		Amount     decimal.Decimal `json:"amount"`
		Month      string          `json:"month"`
		CreatedAt  time.Time       `json:"createdAt"`
		UpdatedAt  time.Time       `json:"updatedAt"`
	}

	// Transaction is one row of the merged income/expense feed. Source tells
	// which table the row lives in; ids are only unique per source.
	Transaction struct {
		Source        Source          `json:"source"`
		ID            int64           `json:"id"`
		AccountID     int64           `json:"accountId"`
		CategoryID    *int64          `json:"categoryId"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Kind          EntryKind       `json:"type"`
		Date          Date            `json:"date"`
		ProjectedDate *Date           `json:"projectedDate"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// WriteResult mirrors what the store reports after a write.
	WriteResult struct {
		ID      int64 `json:"id"`
		Changes int64 `json:"changes"`
	}

	AccountInput struct {
		Name    string          `json:"name"`
		Type    AccountType     `json:"type"`
		Balance decimal.Decimal `json:"balance"`
	}

	CategoryInput struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}

	BudgetInput struct {
		CategoryID int64           `json:"categoryId"`
		Amount     decimal.Decimal `json:"amount"`
		Month      string          `json:"month"`
	}

	TransactionInput struct {
		Source        Source          `json:"type"`
		AccountID     int64           `json:"accountId"`
		CategoryID    *int64          `json:"categoryId"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Kind          EntryKind       `json:"transactionType"`
		Date          Date            `json:"date"`
		ProjectedDate *Date           `json:"projectedDate"`
	}
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrNotFound            = errors.New("not found")
	ErrStorage             = errors.New("storage failure")

	ErrEmptyName          = fmt.Errorf("%w: empty name", ErrValidation)
	ErrInvalidAccountType = fmt.Errorf("%w: invalid account type", ErrValidation)
	ErrInvalidKind        = fmt.Errorf("%w: invalid transaction kind", ErrValidation)
	ErrInvalidSource      = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidFilter      = fmt.Errorf("%w: invalid filter", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidMonth       = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidColor       = fmt.Errorf("%w: invalid color", ErrValidation)
	ErrInvalidReference   = fmt.Errorf("%w: invalid reference", ErrValidation)
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Retirement, Stocks, CreditCard, Loan, Other:
		return true
	}
	return false
}

func (k EntryKind) IsValid() bool {
	return k == Actual || k == Projected
}

func (s Source) IsValid() bool {
	return s == IncomeSource || s == ExpenseSource
}

func (f Filter) IsValid() bool {
	switch f {
	case FilterAll, FilterActual, FilterProjected:
		return true
	}
	return false
}

// ParseFilter maps an empty string to FilterAll.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAll, nil
	}
	if !f.IsValid() {
		return "", fmt.Errorf("%w %q", ErrInvalidFilter, s)
	}
	return f, nil
}

// ValidateMonth checks a YYYY-MM month key.
func ValidateMonth(month string) error {
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return fmt.Errorf("%w %q", ErrInvalidMonth, month)
	}
	return nil
}

func validateDescription(d string) error {
	if len(d) > maxDescriptionLen {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, maxDescriptionLen)
	}
	return nil
}

func (a AccountInput) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidAccountType, a.Type)
	}
	return nil
}

func (c CategoryInput) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return fmt.Errorf("%w %q", ErrInvalidColor, c.Color)
	}
	return validateDescription(c.Description)
}

func (b BudgetInput) Validate() error {
	if b.CategoryID <= 0 {
		return fmt.Errorf("%w: category id %d", ErrInvalidReference, b.CategoryID)
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return ValidateMonth(b.Month)
}

func (t TransactionInput) Validate() error {
	if !t.Source.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidSource, t.Source)
	}
	if t.AccountID <= 0 {
		return fmt.Errorf("%w: account id %d", ErrInvalidReference, t.AccountID)
	}
	if t.CategoryID != nil && *t.CategoryID <= 0 {
		return fmt.Errorf("%w: category id %d", ErrInvalidReference, *t.CategoryID)
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Kind != "" && !t.Kind.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidKind, t.Kind)
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return validateDescription(t.Description)
}

// Transaction converts an income entry into its merged-feed shape.
func (e IncomeEntry) Transaction() Transaction {
	return Transaction{
		Source:        IncomeSource,
		ID:            e.ID,
		AccountID:     e.AccountID,
		Amount:        e.Amount,
		Description:   e.Description,
		Kind:          e.Kind,
		Date:          e.Date,
		ProjectedDate: e.ProjectedDate,
		CreatedAt:     e.CreatedAt,
	}
}

// Transaction converts an expense entry into its merged-feed shape.
func (e ExpenseEntry) Transaction() Transaction {
	return Transaction{
		Source:        ExpenseSource,
		ID:            e.ID,
		AccountID:     e.AccountID,
		CategoryID:    e.CategoryID,
		Amount:        e.Amount,
		Description:   e.Description,
		Kind:          e.Kind,
		Date:          e.Date,
		ProjectedDate: e.ProjectedDate,
		CreatedAt:     e.CreatedAt,
	}
}

// Before orders the merged feed: newest date first, then newest creation,
// then income ahead of expense, then highest id.
func (t Transaction) Before(o Transaction) bool {
	if !t.Date.Equal(o.Date.Time) {
		return t.Date.After(o.Date.Time)
	}
	if !t.CreatedAt.Equal(o.CreatedAt) {
		return t.CreatedAt.After(o.CreatedAt)
	}
	if t.Source != o.Source {
		return t.Source == IncomeSource
	}
	return t.ID > o.ID
}
