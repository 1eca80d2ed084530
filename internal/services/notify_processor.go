package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bancozim/origination/internal/infrastructure/buffer"
	"github.com/bancozim/origination/internal/infrastructure/notify"
)

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// NotifyProcessor sends outbound notifications, parking them in the BoltDB
// outbox when the messaging gateway is down and draining the backlog on a
// schedule.
type NotifyProcessor struct {
	outbox *buffer.Outbox
	sender notify.Sender
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ProcessorConfig
}

func NewNotifyProcessor(outbox *buffer.Outbox, sender notify.Sender, logger *zap.Logger, cfg ProcessorConfig) *NotifyProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	np := &NotifyProcessor{
		outbox: outbox,
		sender: sender,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = np.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := np.Drain(ctx); err != nil {
			np.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return np
}

// Start launches the cron scheduler.
func (np *NotifyProcessor) Start() {
	if np == nil || np.cron == nil {
		return
	}
	np.cron.Start()
	np.logger.Info("notification processor started")
}

// Stop gracefully stops the scheduler.
func (np *NotifyProcessor) Stop(ctx context.Context) {
	if np == nil || np.cron == nil {
		return
	}
	stopCtx := np.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	np.logger.Info("notification processor stopped")
}

// Dispatch tries to send immediately and falls back to the outbox.
func (np *NotifyProcessor) Dispatch(ctx context.Context, n buffer.Notification) error {
	if np == nil || np.sender == nil {
		return fmt.Errorf("notification processor not configured")
	}

	err := np.sender.Send(ctx, n.Message())
	if err == nil {
		return nil
	}
	np.logger.Warn("immediate send failed, parking in outbox",
		zap.String("recipient", n.Recipient),
		zap.Error(err))
	return np.outbox.Enqueue(n)
}

// Drain retries parked notifications, dropping any past the retry budget or
// older than the retention window.
func (np *NotifyProcessor) Drain(ctx context.Context) error {
	if np == nil || np.outbox == nil {
		return nil
	}

	if err := np.outbox.PurgeOlderThan(time.Now().Add(-np.cfg.Retention)); err != nil {
		np.logger.Warn("outbox purge failed", zap.Error(err))
	}

	pending, err := np.outbox.GetBatch(np.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, n := range pending {
		if err := np.sender.Send(ctx, n.Message()); err != nil {
			np.logger.Error("failed to send parked notification",
				zap.String("id", n.ID),
				zap.String("recipient", n.Recipient),
				zap.Error(err))

			n.Retries++
			if n.Retries >= np.cfg.MaxRetries {
				np.logger.Warn("dropping notification (max retries reached)", zap.String("id", n.ID))
				_ = np.outbox.Remove(n)
				continue
			}

			if err := np.outbox.Remove(n); err != nil {
				np.logger.Warn("failed to remove outbox entry", zap.Error(err))
			}
			if err := np.outbox.Requeue(n); err != nil {
				np.logger.Error("failed to requeue notification", zap.Error(err))
			}
			continue
		}

		if err := np.outbox.Remove(n); err != nil {
			np.logger.Warn("failed to purge sent notification", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of parked notifications.
func (np *NotifyProcessor) Size() int {
	if np == nil || np.outbox == nil {
		return 0
	}
	size, err := np.outbox.Size()
	if err != nil {
		return 0
	}
	return size
}
