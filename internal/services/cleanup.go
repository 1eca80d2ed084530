package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bancozim/origination/repository"
)

// CleanupConfig controls the delivered-application retention sweep.
type CleanupConfig struct {
	Schedule  string
	Retention time.Duration
	BatchSize int
	DryRun    bool
}

// Cleanup soft-deletes applications that were delivered long enough ago,
// skipping records flagged as exempt. Runs daily inside the server and is
// also invoked directly by the cleanup binary.
type Cleanup struct {
	states repository.StateRepository
	logger *zap.Logger
	cron   *cron.Cron
	cfg    CleanupConfig
}

func NewCleanup(states repository.StateRepository, logger *zap.Logger, cfg CleanupConfig) *Cleanup {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 0 2 * * *"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleanup{
		states: states,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start schedules the daily sweep.
func (c *Cleanup) Start() error {
	if c == nil || c.cron == nil {
		return nil
	}
	_, err := c.cron.AddFunc(c.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := c.Run(ctx); err != nil {
			c.logger.Error("scheduled cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	c.cron.Start()
	c.logger.Info("cleanup job scheduled", zap.String("schedule", c.cfg.Schedule))
	return nil
}

// Stop halts the scheduler.
func (c *Cleanup) Stop(ctx context.Context) {
	if c == nil || c.cron == nil {
		return
	}
	stopCtx := c.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// Run executes one sweep and returns the counts.
func (c *Cleanup) Run(ctx context.Context) (repository.CleanupReport, error) {
	cutoff := time.Now().Add(-c.cfg.Retention)

	report, err := c.states.SweepDelivered(ctx, cutoff, c.cfg.BatchSize, c.cfg.DryRun)
	if err != nil {
		return report, err
	}

	c.logger.Info("cleanup sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Bool("dry_run", c.cfg.DryRun),
		zap.Int("deleted", report.Deleted),
		zap.Int("exempt", report.Exempt),
		zap.Int("already_deleted", report.AlreadyDeleted))
	return report, nil
}
