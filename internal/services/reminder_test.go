package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

type listStateRepo struct {
	states     []domain.ApplicationState
	lastFilter repository.StateFilter
}

func (r *listStateRepo) List(_ context.Context, filter repository.StateFilter) ([]domain.ApplicationState, error) {
	r.lastFilter = filter
	return r.states, nil
}

func (r *listStateRepo) CreateIfAbsent(_ context.Context, state *domain.ApplicationState) (*domain.ApplicationState, error) {
	return state, nil
}

func (r *listStateRepo) GetBySessionID(_ context.Context, _ string) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *listStateRepo) GetByReferenceCode(_ context.Context, _ string) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *listStateRepo) GetByUserIdentifier(_ context.Context, _ string) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *listStateRepo) SaveStep(_ context.Context, _ repository.StepSave) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *listStateRepo) SetReferenceCode(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

func (r *listStateRepo) UpdateStatus(_ context.Context, _ string, _ domain.Status) error { return nil }

func (r *listStateRepo) RecordCheckResult(_ context.Context, _, _ string, _ domain.CheckResult, _ domain.Status) error {
	return nil
}

func (r *listStateRepo) ConfirmDeposit(_ context.Context, _, _, _ string, _ float64, _ time.Time) error {
	return nil
}

func (r *listStateRepo) Archive(_ context.Context, _ string) error { return nil }

func (r *listStateRepo) SweepDelivered(_ context.Context, _ time.Time, _ int, _ bool) (repository.CleanupReport, error) {
	return repository.CleanupReport{}, nil
}

func TestPayDayFrom(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantOK  bool
		missing bool
	}{
		{name: "range string", value: "25-31", want: 25, wantOK: true},
		{name: "single string", value: "25", want: 25, wantOK: true},
		{name: "string with spaces", value: " 7 ", want: 7, wantOK: true},
		{name: "json number", value: float64(15), want: 15, wantOK: true},
		{name: "day out of range", value: "42", wantOK: false},
		{name: "zero day", value: float64(0), wantOK: false},
		{name: "garbage", value: "end of month", wantOK: false},
		{name: "missing", missing: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formData := map[string]interface{}{}
			if !tt.missing {
				formData["payDayRange"] = tt.value
			}
			day, ok := payDayFrom(formData)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, day)
			}
		})
	}
}

func TestDueForReminder(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name   string
		now    time.Time
		payDay int
		want   bool
	}{
		{name: "exactly lead days before", now: at(2026, time.March, 21), payDay: 25, want: true},
		{name: "too early", now: at(2026, time.March, 20), payDay: 25, want: false},
		{name: "too late", now: at(2026, time.March, 22), payDay: 25, want: false},
		{name: "pay day today", now: at(2026, time.March, 25), payDay: 25, want: false},
		{name: "rolls into next month", now: at(2026, time.March, 29), payDay: 2, want: true},
		{name: "31st skipped in short months", now: at(2026, time.April, 27), payDay: 31, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dueForReminder(tt.now, tt.payDay, 4))
		})
	}
}

func TestReminderRunDryRunCountsDue(t *testing.T) {
	repo := &listStateRepo{states: []domain.ApplicationState{
		{
			SessionID:      "due",
			UserIdentifier: "+263771234567",
			Status:         domain.StatusApproved,
			FormData:       map[string]interface{}{"payDayRange": "25-31"},
		},
		{
			SessionID:      "not yet",
			UserIdentifier: "+263771234568",
			Status:         domain.StatusApproved,
			FormData:       map[string]interface{}{"payDayRange": "15"},
		},
		{
			SessionID: "no contact",
			Status:    domain.StatusCompleted,
			FormData:  map[string]interface{}{"payDayRange": "25"},
		},
		{
			SessionID:      "no pay day",
			UserIdentifier: "+263771234569",
			Status:         domain.StatusCompleted,
			FormData:       map[string]interface{}{},
		},
	}}

	reminder := NewReminder(repo, nil, nil, ReminderConfig{LeadDays: 4, DryRun: true})

	now := time.Date(2026, time.March, 21, 8, 0, 0, 0, time.UTC)
	sent, err := reminder.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.ElementsMatch(t,
		[]domain.Status{domain.StatusApproved, domain.StatusCompleted},
		repo.lastFilter.Statuses)
}
