package core

import "github.com/shopspring/decimal"

// BalancePoint is the summed balance of accounts created on one day.
type BalancePoint struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// CategoryComparison contrasts projected and actual spending for a category.
// Variance is projected minus actual.
type CategoryComparison struct {
	Category  string          `json:"category"`
	Projected decimal.Decimal `json:"projected"`
	Actual    decimal.Decimal `json:"actual"`
	Variance  decimal.Decimal `json:"variance"`
}

// MonthlyComparison holds per-month income and expense totals by kind.
type MonthlyComparison struct {
	Month            string          `json:"month"`
	ProjectedIncome  decimal.Decimal `json:"projectedIncome"`
	ActualIncome     decimal.Decimal `json:"actualIncome"`
	ProjectedExpense decimal.Decimal `json:"projectedExpense"`
	ActualExpense    decimal.Decimal `json:"actualExpense"`
}

// BudgetStatus is one category's budget against its actual spending.
type BudgetStatus struct {
	CategoryID int64           `json:"categoryId"`
	Category   string          `json:"category"`
	Budgeted   decimal.Decimal `json:"budgeted"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// MonthSummary is a compact budget summary for a specific year+month.
type MonthSummary struct {
	Month         string          `json:"month"`
	Rows          []BudgetStatus  `json:"rows"`
	TotalBudgeted decimal.Decimal `json:"totalBudgeted"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}

// Dashboard bundles the views of the dashboard page.
type Dashboard struct {
	BalanceHistory   []BalancePoint  `json:"balanceHistory"`
	CategorySpending []CategoryTotal `json:"categorySpending"`
}

// Comparison bundles the projected-vs-actual views.
type Comparison struct {
	Categories []CategoryComparison `json:"categories"`
	Monthly    []MonthlyComparison  `json:"monthly"`
}
