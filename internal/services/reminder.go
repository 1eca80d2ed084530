package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/infrastructure/buffer"
	"github.com/bancozim/origination/internal/infrastructure/notify"
	"github.com/bancozim/origination/repository"
)

// ReminderConfig controls the pay-day reminder job.
type ReminderConfig struct {
	Schedule string
	LeadDays int
	DryRun   bool
}

// Reminder sends an SMS nudge a few days before a customer's pay date so
// they remember the upcoming installment. Pay dates come from the
// payDayRange field captured during the wizard.
type Reminder struct {
	states    repository.StateRepository
	processor *NotifyProcessor
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       ReminderConfig
}

func NewReminder(states repository.StateRepository, processor *NotifyProcessor, logger *zap.Logger, cfg ReminderConfig) *Reminder {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 0 8 * * *"
	}
	if cfg.LeadDays <= 0 {
		cfg.LeadDays = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reminder{
		states:    states,
		processor: processor,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start schedules the daily reminder run.
func (r *Reminder) Start() error {
	if r == nil || r.cron == nil {
		return nil
	}
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.Run(ctx, time.Now()); err != nil {
			r.logger.Error("scheduled reminder run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	r.cron.Start()
	r.logger.Info("reminder job scheduled", zap.String("schedule", r.cfg.Schedule))
	return nil
}

// Stop halts the scheduler.
func (r *Reminder) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// Run finds applications whose pay date is exactly LeadDays away and
// dispatches one SMS per match. Returns the number of reminders sent (or,
// in dry-run, that would have been sent).
func (r *Reminder) Run(ctx context.Context, now time.Time) (int, error) {
	candidates, err := r.states.List(ctx, repository.StateFilter{
		Statuses: []domain.Status{domain.StatusApproved, domain.StatusCompleted},
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range candidates {
		state := &candidates[i]

		payDay, ok := payDayFrom(state.FormData)
		if !ok {
			continue
		}
		if !dueForReminder(now, payDay, r.cfg.LeadDays) {
			continue
		}
		if state.UserIdentifier == "" {
			r.logger.Warn("reminder skipped, no contact identifier",
				zap.String("session_id", state.SessionID))
			continue
		}

		sent++
		if r.cfg.DryRun {
			r.logger.Info("reminder due (dry run)",
				zap.String("session_id", state.SessionID),
				zap.Int("pay_day", payDay))
			continue
		}

		n := buffer.Notification{
			SessionID: state.SessionID,
			Recipient: state.UserIdentifier,
			Channel:   notify.ChannelSMS,
			Body: fmt.Sprintf(
				"Reminder: your BancoZim installment is due on the %d%s. Reply HELP for assistance.",
				payDay, ordinalSuffix(payDay)),
		}
		if err := r.processor.Dispatch(ctx, n); err != nil {
			r.logger.Error("failed to dispatch reminder",
				zap.String("session_id", state.SessionID),
				zap.Error(err))
			continue
		}
	}

	r.logger.Info("reminder run finished",
		zap.Bool("dry_run", r.cfg.DryRun),
		zap.Int("candidates", len(candidates)),
		zap.Int("due", sent))
	return sent, nil
}

// payDayFrom extracts the first day of the stored payDayRange. The field is
// captured as "25-31", "25" or a plain number depending on the channel.
func payDayFrom(formData map[string]interface{}) (int, bool) {
	raw, ok := formData["payDayRange"]
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case string:
		first := v
		if idx := strings.IndexAny(v, "-–"); idx > 0 {
			first = v[:idx]
		}
		day, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil || day < 1 || day > 31 {
			return 0, false
		}
		return day, true
	case float64:
		day := int(v)
		if day < 1 || day > 31 {
			return 0, false
		}
		return day, true
	}
	return 0, false
}

// dueForReminder reports whether the next occurrence of payDay is exactly
// leadDays after now, in calendar days.
func dueForReminder(now time.Time, payDay, leadDays int) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	payDate := time.Date(now.Year(), now.Month(), payDay, 0, 0, 0, 0, now.Location())
	// Months without the requested day roll over (e.g. the 31st in
	// February); skip those, the next valid month catches it.
	if payDate.Day() != payDay {
		return false
	}
	if payDate.Before(today) {
		payDate = time.Date(now.Year(), now.Month()+1, payDay, 0, 0, 0, 0, now.Location())
		if payDate.Day() != payDay {
			return false
		}
	}

	return int(payDate.Sub(today).Hours()/24) == leadDays
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
