// Command remind dispatches pay-day reminder SMS for approved and completed
// applications whose pay date is a few days away. With --dry-run it logs the
// matches without sending.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/bancozim/origination/internal/config"
	"github.com/bancozim/origination/internal/infrastructure/buffer"
	"github.com/bancozim/origination/internal/infrastructure/notify"
	pgInfra "github.com/bancozim/origination/internal/infrastructure/postgres"
	"github.com/bancozim/origination/internal/services"
	"github.com/bancozim/origination/pkg/logger"
	"github.com/bancozim/origination/repository/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "log due reminders without sending")
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

	outbox, err := buffer.Open(cfg.Outbox.Path, cfg.Outbox.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open notification outbox", zap.Error(err))
	}
	defer outbox.Close()

	gateway := notify.NewGateway(notify.GatewayConfig{
		BaseURL:  cfg.Notify.BaseURL,
		APIKey:   cfg.Notify.APIKey,
		SenderID: cfg.Notify.SenderID,
		Timeout:  cfg.Notify.Timeout,
	}, zapLogger)

	processor := services.NewNotifyProcessor(outbox, gateway, zapLogger, services.ProcessorConfig{
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetries,
		Retention:  cfg.Outbox.Retention,
	})

	reminder := services.NewReminder(postgres.NewStateRepository(pool), processor, zapLogger, services.ReminderConfig{
		LeadDays: cfg.Jobs.ReminderLeadDays,
		DryRun:   *dryRun,
	})

	due, err := reminder.Run(ctx, time.Now())
	if err != nil {
		zapLogger.Error("reminder run failed", zap.Error(err))
		return
	}

	zapLogger.Info("reminders dispatched",
		zap.Bool("dry_run", *dryRun),
		zap.Int("due", due))
}
