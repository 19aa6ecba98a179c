package storage

import (
	"sort"

	"github.com/shopspring/decimal"

	"budgetit/internal/core"
)

// balanceHistoryDays caps how many distinct creation days are reported.
const balanceHistoryDays = 30

// mergeTransactions merges two feeds that are each already in core.Transaction
// Before order into one feed in the same order.
func mergeTransactions(income, expense []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(income)+len(expense))
	i, j := 0, 0
	for i < len(income) && j < len(expense) {
		if expense[j].Before(income[i]) {
			out = append(out, expense[j])
			j++
			continue
		}
		out = append(out, income[i])
		i++
	}
	out = append(out, income[i:]...)
	return append(out, expense[j:]...)
}

// summarizeBalances sums balances per creation day and keeps the most recent
// days, returned oldest first.
func summarizeBalances(rows []accountBalanceRow, limit int) []core.BalancePoint {
	totals := make(map[string]decimal.Decimal)
	var days []string
	for _, r := range rows {
		if _, ok := totals[r.Day]; !ok {
			days = append(days, r.Day)
			totals[r.Day] = decimal.Zero
		}
		totals[r.Day] = totals[r.Day].Add(r.Balance)
	}
	sort.Strings(days)
	if len(days) > limit {
		days = days[len(days)-limit:]
	}
	points := make([]core.BalancePoint, 0, len(days))
	for _, d := range days {
		points = append(points, core.BalancePoint{Date: d, Balance: totals[d]})
	}
	return points
}

type categoryTotals struct {
	name       string
	projected  decimal.Decimal
	actual     decimal.Decimal
	actualRows int
}

// groupByCategory keys by category id so that a renamed category never
// splits; first-seen order is preserved.
func groupByCategory(rows []categoryAmountRow) ([]int64, map[int64]*categoryTotals) {
	var order []int64
	groups := make(map[int64]*categoryTotals)
	for _, r := range rows {
		g, ok := groups[r.CategoryID]
		if !ok {
			g = &categoryTotals{name: r.Name, projected: decimal.Zero, actual: decimal.Zero}
			groups[r.CategoryID] = g
			order = append(order, r.CategoryID)
		}
		switch core.EntryKind(r.Kind) {
		case core.Actual:
			g.actual = g.actual.Add(r.Amount)
			g.actualRows++
		case core.Projected:
			g.projected = g.projected.Add(r.Amount)
		}
	}
	return order, groups
}

// summarizeSpending totals actual spending per category, largest first.
func summarizeSpending(rows []categoryAmountRow) []core.CategoryTotal {
	order, groups := groupByCategory(rows)
	out := make([]core.CategoryTotal, 0, len(order))
	for _, id := range order {
		g := groups[id]
		if g.actualRows == 0 {
			continue
		}
		out = append(out, core.CategoryTotal{Name: g.name, Value: g.actual})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// compareCategories reports projected vs actual per category, skipping
// categories whose sums are both zero, ordered by name.
func compareCategories(rows []categoryAmountRow) []core.CategoryComparison {
	order, groups := groupByCategory(rows)
	out := make([]core.CategoryComparison, 0, len(order))
	for _, id := range order {
		g := groups[id]
		if g.projected.IsZero() && g.actual.IsZero() {
			continue
		}
		out = append(out, core.CategoryComparison{
			Category:  g.name,
			Projected: g.projected,
			Actual:    g.actual,
			Variance:  g.projected.Sub(g.actual),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

type kindTotals struct {
	projected decimal.Decimal
	actual    decimal.Decimal
}

func bucketByMonth(rows []monthAmountRow) (map[string]*kindTotals, error) {
	buckets := make(map[string]*kindTotals)
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		month := d.MonthKey()
		b, ok := buckets[month]
		if !ok {
			b = &kindTotals{projected: decimal.Zero, actual: decimal.Zero}
			buckets[month] = b
		}
		switch core.EntryKind(r.Kind) {
		case core.Actual:
			b.actual = b.actual.Add(r.Amount)
		case core.Projected:
			b.projected = b.projected.Add(r.Amount)
		}
	}
	return buckets, nil
}

// compareMonths buckets income and expenses independently and full-outer-joins
// the buckets on month, zero-filling whichever side is missing.
func compareMonths(income, expense []monthAmountRow) ([]core.MonthlyComparison, error) {
	inc, err := bucketByMonth(income)
	if err != nil {
		return nil, err
	}
	exp, err := bucketByMonth(expense)
	if err != nil {
		return nil, err
	}

	months := make([]string, 0, len(inc)+len(exp))
	for m := range inc {
		months = append(months, m)
	}
	for m := range exp {
		if _, ok := inc[m]; !ok {
			months = append(months, m)
		}
	}
	sort.Strings(months)

	out := make([]core.MonthlyComparison, 0, len(months))
	for _, m := range months {
		row := core.MonthlyComparison{
			Month:            m,
			ProjectedIncome:  decimal.Zero,
			ActualIncome:     decimal.Zero,
			ProjectedExpense: decimal.Zero,
			ActualExpense:    decimal.Zero,
		}
		if b, ok := inc[m]; ok {
			row.ProjectedIncome, row.ActualIncome = b.projected, b.actual
		}
		if b, ok := exp[m]; ok {
			row.ProjectedExpense, row.ActualExpense = b.projected, b.actual
		}
		out = append(out, row)
	}
	return out, nil
}

// summarizeMonth joins a month's budgets with its actual spending. Categories
// that spent without a budget are listed with a zero budget.
func summarizeMonth(month string, budgets []budgetAmountRow, spending []categoryAmountRow) core.MonthSummary {
	summary := core.MonthSummary{Month: month, TotalBudgeted: decimal.Zero, TotalSpent: decimal.Zero}
	byID := make(map[int64]*core.BudgetStatus)
	add := func(id int64, name string) *core.BudgetStatus {
		if s, ok := byID[id]; ok {
			return s
		}
		s := &core.BudgetStatus{CategoryID: id, Category: name, Budgeted: decimal.Zero, Spent: decimal.Zero}
		byID[id] = s
		return s
	}

	for _, b := range budgets {
		s := add(b.CategoryID, b.Name)
		s.Budgeted = s.Budgeted.Add(b.Amount)
	}
	for _, r := range spending {
		if core.EntryKind(r.Kind) != core.Actual {
			continue
		}
		s := add(r.CategoryID, r.Name)
		s.Spent = s.Spent.Add(r.Amount)
	}

	summary.Rows = make([]core.BudgetStatus, 0, len(byID))
	for _, s := range byID {
		s.Remaining = s.Budgeted.Sub(s.Spent)
		summary.TotalBudgeted = summary.TotalBudgeted.Add(s.Budgeted)
		summary.TotalSpent = summary.TotalSpent.Add(s.Spent)
		summary.Rows = append(summary.Rows, *s)
	}
	sort.Slice(summary.Rows, func(i, j int) bool {
		if summary.Rows[i].Category != summary.Rows[j].Category {
			return summary.Rows[i].Category < summary.Rows[j].Category
		}
		return summary.Rows[i].CategoryID < summary.Rows[j].CategoryID
	})
	return summary
}
