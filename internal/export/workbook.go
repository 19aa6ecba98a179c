// Package export writes a spreadsheet snapshot of the ledger.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"budgetit/internal/core"
)

const (
	SheetTransactions = "Transactions"
	SheetCategories   = "Categories"
	SheetMonthly      = "Monthly"
)

// Source is the read side of the ledger the workbook is built from.
type Source interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListTransactions(ctx context.Context, filter core.Filter) ([]core.Transaction, error)
	MonthlyComparison(ctx context.Context) ([]core.MonthlyComparison, error)
}

type sheet struct {
	name   string
	header []any
	widths []float64
	rows   [][]any
}

// WriteWorkbook writes an XLSX with one sheet for the transaction feed, one
// for categories and one for the monthly projected-vs-actual comparison.
func WriteWorkbook(ctx context.Context, src Source, w io.Writer) error {
	sheets, err := collect(ctx, src)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			return fmt.Errorf("write sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	slog.InfoContext(ctx, "Workbook exported",
		"component", "export",
		"transactions", len(sheets[0].rows),
		"categories", len(sheets[1].rows),
		"months", len(sheets[2].rows))
	return nil
}

func collect(ctx context.Context, src Source) ([]sheet, error) {
	accounts, err := src.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	categories, err := src.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	txs, err := src.ListTransactions(ctx, core.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	months, err := src.MonthlyComparison(ctx)
	if err != nil {
		return nil, fmt.Errorf("load monthly comparison: %w", err)
	}

	accountNames := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	return []sheet{
		transactionSheet(txs, accountNames, categoryNames),
		categorySheet(categories),
		monthlySheet(months),
	}, nil
}

func transactionSheet(txs []core.Transaction, accounts, categories map[int64]string) sheet {
	s := sheet{
		name:   SheetTransactions,
		header: []any{"Date", "Type", "Kind", "Account", "Category", "Description", "Amount", "Projected Date"},
		widths: []float64{12, 10, 10, 18, 18, 36, 12, 14},
	}
	for _, tx := range txs {
		category := ""
		if tx.CategoryID != nil {
			category = categories[*tx.CategoryID]
		}
		projected := ""
		if tx.ProjectedDate != nil {
			projected = tx.ProjectedDate.String()
		}
		account, ok := accounts[tx.AccountID]
		if !ok {
			account = fmt.Sprintf("#%d", tx.AccountID)
		}
		s.rows = append(s.rows, []any{
			tx.Date.String(),
			string(tx.Source),
			string(tx.Kind),
			account,
			category,
			tx.Description,
			tx.Amount.InexactFloat64(),
			projected,
		})
	}
	return s
}

func categorySheet(categories []core.Category) sheet {
	s := sheet{
		name:   SheetCategories,
		header: []any{"Name", "Description", "Color"},
		widths: []float64{20, 40, 10},
	}
	for _, c := range categories {
		s.rows = append(s.rows, []any{c.Name, c.Description, c.Color})
	}
	return s
}

func monthlySheet(months []core.MonthlyComparison) sheet {
	s := sheet{
		name:   SheetMonthly,
		header: []any{"Month", "Projected Income", "Actual Income", "Projected Expense", "Actual Expense"},
		widths: []float64{10, 18, 16, 18, 16},
	}
	for _, m := range months {
		s.rows = append(s.rows, []any{
			m.Month,
			m.ProjectedIncome.InexactFloat64(),
			m.ActualIncome.InexactFloat64(),
			m.ProjectedExpense.InexactFloat64(),
			m.ActualExpense.InexactFloat64(),
		})
	}
	return s
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}

	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
