package storage

import (
	"errors"
	"testing"
	"time"

	"budgetit/internal/core"
)

func TestMergeTransactions(t *testing.T) {
	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	income := []core.Transaction{
		{Source: core.IncomeSource, ID: 2, Date: core.NewDate(2024, 3, 1), CreatedAt: at},
		{Source: core.IncomeSource, ID: 1, Date: core.NewDate(2024, 1, 1), CreatedAt: at},
	}
	expense := []core.Transaction{
		{Source: core.ExpenseSource, ID: 3, Date: core.NewDate(2024, 4, 1), CreatedAt: at},
		{Source: core.ExpenseSource, ID: 2, Date: core.NewDate(2024, 3, 1), CreatedAt: at},
		{Source: core.ExpenseSource, ID: 1, Date: core.NewDate(2023, 12, 1), CreatedAt: at},
	}

	got := mergeTransactions(income, expense)
	want := []struct {
		src core.Source
		id  int64
	}{
		{core.ExpenseSource, 3},
		{core.IncomeSource, 2},
		{core.ExpenseSource, 2},
		{core.IncomeSource, 1},
		{core.ExpenseSource, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Source != w.src || got[i].ID != w.id {
			t.Fatalf("pos %d = %s/%d, want %s/%d", i, got[i].Source, got[i].ID, w.src, w.id)
		}
	}

	if out := mergeTransactions(nil, nil); len(out) != 0 {
		t.Fatalf("expected empty merge, got %+v", out)
	}
}

func TestSummarizeBalancesLimit(t *testing.T) {
	rows := []accountBalanceRow{
		{Day: "2024-01-03", Balance: dec("1")},
		{Day: "2024-01-01", Balance: dec("5")},
		{Day: "2024-01-02", Balance: dec("2")},
		{Day: "2024-01-03", Balance: dec("4")},
	}
	points := summarizeBalances(rows, 2)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %+v", points)
	}
	if points[0].Date != "2024-01-02" || points[1].Date != "2024-01-03" || !points[1].Balance.Equal(dec("5")) {
		t.Fatalf("unexpected points %+v", points)
	}
}

func TestSummarizeSpending(t *testing.T) {
	rows := []categoryAmountRow{
		{CategoryID: 1, Name: "Food", Kind: "actual", Amount: dec("10")},
		{CategoryID: 1, Name: "Food", Kind: "actual", Amount: dec("15")},
		{CategoryID: 2, Name: "Rent", Kind: "actual", Amount: dec("800")},
		{CategoryID: 3, Name: "Trips", Kind: "projected", Amount: dec("300")},
		{CategoryID: 4, Name: "Books", Kind: "actual", Amount: dec("25")},
	}
	got := summarizeSpending(rows)
	if len(got) != 3 {
		t.Fatalf("projected-only categories must not appear: %+v", got)
	}
	if got[0].Name != "Rent" || got[1].Name != "Books" || got[2].Name != "Food" {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got[2].Value.Equal(dec("25")) {
		t.Fatalf("food total = %s", got[2].Value)
	}
}

func TestCompareCategoriesSkipsZero(t *testing.T) {
	rows := []categoryAmountRow{
		{CategoryID: 2, Name: "Zoo", Kind: "actual", Amount: dec("0")},
		{CategoryID: 1, Name: "Auto", Kind: "projected", Amount: dec("50")},
		{CategoryID: 1, Name: "Auto", Kind: "actual", Amount: dec("70")},
	}
	got := compareCategories(rows)
	if len(got) != 1 || got[0].Category != "Auto" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if !got[0].Variance.Equal(dec("-20")) {
		t.Fatalf("variance = %s, want -20", got[0].Variance)
	}
}

func TestCompareMonths(t *testing.T) {
	income := []monthAmountRow{
		{Date: "2024-02-10", Kind: "actual", Amount: dec("100")},
		{Date: "2024-01-31", Kind: "projected", Amount: dec("40")},
		{Date: "2024-02-29", Kind: "actual", Amount: dec("5")},
	}
	expense := []monthAmountRow{
		{Date: "2024-02-01", Kind: "projected", Amount: dec("30")},
		{Date: "2024-03-15", Kind: "actual", Amount: dec("9.99")},
	}
	got, err := compareMonths(income, expense)
	if err != nil {
		t.Fatalf("compareMonths: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 months, got %+v", got)
	}
	for i, m := range []string{"2024-01", "2024-02", "2024-03"} {
		if got[i].Month != m {
			t.Fatalf("pos %d month = %s, want %s", i, got[i].Month, m)
		}
	}
	if !got[1].ActualIncome.Equal(dec("105")) || !got[1].ProjectedExpense.Equal(dec("30")) {
		t.Fatalf("unexpected february %+v", got[1])
	}
	if !got[2].ActualIncome.IsZero() || !got[2].ActualExpense.Equal(dec("9.99")) {
		t.Fatalf("unexpected march %+v", got[2])
	}
}

func TestCompareMonthsRejectsBadStoredDate(t *testing.T) {
	rows := []monthAmountRow{{Date: "2024/02/10", Kind: "actual", Amount: dec("1")}}
	if _, err := compareMonths(rows, nil); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected date error, got %v", err)
	}
}
