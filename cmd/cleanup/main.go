// Command cleanup runs one retention sweep over delivered applications and
// exits 0 regardless of how many rows were touched. With --dry-run it only
// reports the counts.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/bancozim/origination/internal/config"
	pgInfra "github.com/bancozim/origination/internal/infrastructure/postgres"
	"github.com/bancozim/origination/internal/services"
	"github.com/bancozim/origination/pkg/logger"
	"github.com/bancozim/origination/repository/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report counts without deleting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	cleanup := services.NewCleanup(postgres.NewStateRepository(pool), zapLogger, services.CleanupConfig{
		Retention: cfg.Jobs.CleanupRetention,
		BatchSize: cfg.Jobs.CleanupBatchSize,
		DryRun:    *dryRun,
	})

	report, err := cleanup.Run(ctx)
	if err != nil {
		// Exit code stays 0 for the scheduler; the error is in the logs.
		zapLogger.Error("cleanup sweep failed", zap.Error(err))
		return
	}

	zapLogger.Info("cleanup finished",
		zap.Bool("dry_run", *dryRun),
		zap.Int("deleted", report.Deleted),
		zap.Int("exempt", report.Exempt),
		zap.Int("already_deleted", report.AlreadyDeleted))
}
