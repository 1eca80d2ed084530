package repository

import (
	"context"
	"time"

	"github.com/bancozim/origination/domain"
)

// StepSave carries everything needed for one wizard advance. The repository
// merges Delta into the stored form data field-by-field inside a single
// transaction and appends the matching transition row.
type StepSave struct {
	SessionID string
	Channel   domain.Channel
	Step      string
	Delta     map[string]interface{}
	Metadata  map[string]string
}

// StateFilter narrows listing queries.
type StateFilter struct {
	Statuses        []domain.Status
	Channel         domain.Channel
	IncludeArchived bool
	Limit           int
	Offset          int
}

// CleanupReport summarizes one cleanup sweep.
type CleanupReport struct {
	Deleted        int `json:"deleted"`
	Exempt         int `json:"exempt"`
	AlreadyDeleted int `json:"already_deleted"`
}

// StateRepository is the durable store for ApplicationState aggregates.
type StateRepository interface {
	// CreateIfAbsent inserts a fresh state for the session id or returns the
	// existing one. Idempotent by session_id.
	CreateIfAbsent(ctx context.Context, state *domain.ApplicationState) (*domain.ApplicationState, error)

	GetBySessionID(ctx context.Context, sessionID string) (*domain.ApplicationState, error)

	// GetByReferenceCode only matches codes whose expiry lies in the future;
	// an expired code behaves as not found.
	GetByReferenceCode(ctx context.Context, code string) (*domain.ApplicationState, error)

	// GetByUserIdentifier returns the most recently updated non-deleted state
	// for the identifier, newest first.
	GetByUserIdentifier(ctx context.Context, userIdentifier string) (*domain.ApplicationState, error)

	// SaveStep performs the locked merge-and-advance described on StepSave.
	SaveStep(ctx context.Context, save StepSave) (*domain.ApplicationState, error)

	// SetReferenceCode stores a generated code. A unique violation is surfaced
	// as a domain conflict error so the caller can retry with a new code.
	SetReferenceCode(ctx context.Context, stateID, code string, expiresAt time.Time) error

	UpdateStatus(ctx context.Context, stateID string, status domain.Status) error

	// RecordCheckResult persists one external check outcome together with the
	// status it implies. It never runs for a stale or duplicate attempt; that
	// gating happens in the status engine.
	RecordCheckResult(ctx context.Context, stateID, checkType string, result domain.CheckResult, status domain.Status) error

	ConfirmDeposit(ctx context.Context, stateID, transactionID, method string, amount float64, paidAt time.Time) error

	Archive(ctx context.Context, stateID string) error

	List(ctx context.Context, filter StateFilter) ([]domain.ApplicationState, error)

	// SweepDelivered soft-deletes states delivered before the cutoff, in
	// batches, skipping exempt and already-deleted rows. With dryRun set it
	// only counts.
	SweepDelivered(ctx context.Context, cutoff time.Time, batchSize int, dryRun bool) (CleanupReport, error)
}
