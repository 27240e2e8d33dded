// Command reconcile compares every product's stock with its ledger and prints
// the drifting products as JSON on stdout. Logs go to stderr. It exits 1 when
// drift is found and 2 when reconciliation fails.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"go-stock-ledger/internal/cache"
	"go-stock-ledger/internal/config"
	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"
	"go-stock-ledger/pkg/database"
	"go-stock-ledger/pkg/logger"
)

const (
	exitConsistent = 0
	exitDrift      = 1
	exitFailed     = 2
)

type report struct {
	Consistent bool                `json:"consistent"`
	Drift      []model.DriftReport `json:"drift"`
}

func main() {
	logger.Logger = logger.Logger.Output(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.InitWithWriter("stock-ledger-reconcile", cfg.IsDevelopment(), cfg.LogLevel, os.Stderr)

	db, err := database.ConnectDB(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ledger := service.NewLedgerService(
		repository.NewLedgerRepo(db, repository.LedgerOptions{Mode: cfg.LedgerLockMode}),
		repository.NewProductRepo(db),
		cache.Noop{},
		events.Fanout{},
		nil,
	)

	code := run(ctx, ledger, os.Stdout)
	cancel()
	os.Exit(code)
}

// run reconciles the ledger and writes the report to stdout. Only the report
// is written there.
func run(ctx context.Context, ledger service.LedgerService, stdout io.Writer) int {
	drift, err := ledger.Reconcile(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Reconciliation failed")
		return exitFailed
	}
	if drift == nil {
		drift = []model.DriftReport{}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report{Consistent: len(drift) == 0, Drift: drift}); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to write report")
		return exitFailed
	}

	if len(drift) > 0 {
		logger.Logger.Warn().Int("products", len(drift)).Msg("Ledger drift found")
		return exitDrift
	}
	logger.Logger.Info().Msg("Ledger consistent")
	return exitConsistent
}
