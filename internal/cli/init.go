// Package cli provides common CLI initialization utilities.
// This package consolidates the startup sequence shared by cmd/budgetit
// and cmd/budgetit-export.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetit/internal/cache"
	"budgetit/internal/config"
	applog "budgetit/internal/log"
	"budgetit/internal/services"
	"budgetit/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from cfg and sets it as the default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	conf := applog.DefaultConfig()
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		conf.Level = level
	}
	conf.Format = cfg.LogFormat

	logger := applog.New(conf)
	applog.SetDefault(logger)
	return logger
}

// Ledger bundles the service with the background cache sweeper that serves it.
type Ledger struct {
	*services.LedgerService
	sweeper *cache.Manager
}

// OpenLedger opens the SQLite store at cfg.DBPath, applying migrations, and
// puts a view cache sized from cfg in front of it.
func OpenLedger(cfg *config.Config) (*Ledger, error) {
	repo, err := storage.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger store %s: %w", cfg.DBPath, err)
	}

	views := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
	sweeper := cache.NewManager()
	sweeper.Register(views)
	sweeper.StartCleanup(cfg.CacheTTL)

	return &Ledger{
		LedgerService: services.NewLedgerService(repo, views),
		sweeper:       sweeper,
	}, nil
}

// Close stops the cache sweeper and closes the store.
func (l *Ledger) Close() error {
	l.sweeper.Stop()
	return l.LedgerService.Close()
}

// InitLedger is OpenLedger that exits the process on failure.
func InitLedger(logger *applog.Logger, cfg *config.Config) *Ledger {
	ledger, err := OpenLedger(cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger",
			applog.FieldErrorType, applog.ErrorTypeDatabase,
			applog.FieldError, err,
			"path", cfg.DBPath)
		os.Exit(1)
	}
	logger.Info("Ledger ready",
		"path", cfg.DBPath,
		"cache_size", cfg.CacheSize,
		"cache_ttl", cfg.CacheTTL.String())
	return ledger
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has returned.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			applog.FieldOperation, applog.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", "timeout", timeout.String())
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
