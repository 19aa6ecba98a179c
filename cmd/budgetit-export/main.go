// Command budgetit-export writes the ledger to an XLSX workbook.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"budgetit/internal/cli"
	"budgetit/internal/export"
	applog "budgetit/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	out := flag.String("out", cfg.ExportPath, "destination .xlsx file")
	flag.Parse()

	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentExport)
	ledger := cli.InitLedger(logger, cfg)

	code := 0
	if err := run(ledger, *out); err != nil {
		logger.Error("Export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldError, err,
			"path", *out)
		code = 1
	} else {
		logger.Info("Export written", applog.FieldOperation, applog.OpExport, "path", *out)
	}

	if err := ledger.Close(); err != nil {
		logger.Error("Ledger close error", applog.FieldError, err)
	}
	os.Exit(code)
}

// run writes to a temporary file next to path and renames it into place, so
// a failed export never leaves a truncated workbook behind.
func run(src export.Source, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".budgetit-export-*.xlsx")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := export.WriteWorkbook(ctx, src, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
