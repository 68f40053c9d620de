// Package cli holds the start-up steps shared by cmd/budgetly,
// cmd/onboarding-worker and cmd/budgetctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetly/internal/backend"
	"budgetly/internal/catalog"
	"budgetly/internal/config"
	"budgetly/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(level, format string) (*log.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := log.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: lvl, Format: f, Output: os.Stdout, Component: log.ComponentApp})
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
// Logging is not configured yet at this point, so problems go to stderr.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// LoadCatalog returns the embedded catalog, or the one at path when set.
func LoadCatalog(path string) (catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// OpenBackend creates the configured store, seeded with the catalog's
// fixed-cost categories.
func OpenBackend(ctx context.Context, cfg *config.Config, cat catalog.Catalog, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg, cat.Categories.FixedCost)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.Slog()).CreateBackend(ctx, bcfg)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs msg with err and exits.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{log.FieldError, err}, args...)...)
	os.Exit(1)
}
