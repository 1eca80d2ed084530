package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

const pgUniqueViolation = "23505"

const stateColumns = `
	id, session_id, channel, user_identifier, current_step, form_data, metadata,
	reference_code, reference_code_expires_at, status, check_type, check_status, check_result,
	deposit_amount, deposit_paid, deposit_paid_at, deposit_transaction_id, deposit_payment_method,
	expires_at, last_activity, is_archived, exempt_from_auto_deletion,
	created_at, updated_at, deleted_at`

type stateRepository struct {
	pool *pgxpool.Pool
}

// NewStateRepository returns a Postgres-backed implementation of StateRepository.
func NewStateRepository(pool *pgxpool.Pool) repository.StateRepository {
	return &stateRepository{pool: pool}
}

func (r *stateRepository) CreateIfAbsent(ctx context.Context, state *domain.ApplicationState) (*domain.ApplicationState, error) {
	if state == nil || state.SessionID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if state.ID == "" {
		state.ID = uuid.NewString()
	}

	const insert = `
	INSERT INTO application_states
		(id, session_id, channel, user_identifier, current_step, form_data, metadata, status, expires_at, last_activity)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (session_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, insert,
		state.ID,
		state.SessionID,
		string(state.Channel),
		state.UserIdentifier,
		state.CurrentStep,
		marshalJSON(state.FormData),
		marshalMap(state.Metadata),
		string(state.Status),
		nullTimePtr(state.ExpiresAt),
	)
	if err != nil {
		return nil, err
	}

	return r.GetBySessionID(ctx, state.SessionID)
}

func (r *stateRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.ApplicationState, error) {
	query := `SELECT ` + stateColumns + ` FROM application_states WHERE session_id = $1 AND deleted_at IS NULL`
	return scanState(r.pool.QueryRow(ctx, query, sessionID))
}

func (r *stateRepository) GetByReferenceCode(ctx context.Context, code string) (*domain.ApplicationState, error) {
	query := `SELECT ` + stateColumns + `
	FROM application_states
	WHERE reference_code = $1
	  AND reference_code_expires_at > NOW()
	  AND deleted_at IS NULL`
	return scanState(r.pool.QueryRow(ctx, query, code))
}

func (r *stateRepository) GetByUserIdentifier(ctx context.Context, userIdentifier string) (*domain.ApplicationState, error) {
	query := `SELECT ` + stateColumns + `
	FROM application_states
	WHERE user_identifier = $1 AND deleted_at IS NULL
	ORDER BY updated_at DESC
	LIMIT 1`
	return scanState(r.pool.QueryRow(ctx, query, userIdentifier))
}

// SaveStep locks the row, merges the delta field-by-field, advances the step
// and appends the transition record, all in one transaction. The first
// transition of a session is recorded with a null from_step.
func (r *stateRepository) SaveStep(ctx context.Context, save repository.StepSave) (*domain.ApplicationState, error) {
	if save.SessionID == "" || save.Step == "" {
		return nil, domain.ErrInvalidPayload
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT ` + stateColumns + `
	FROM application_states
	WHERE session_id = $1 AND deleted_at IS NULL
	FOR UPDATE`

	state, err := scanState(tx.QueryRow(ctx, lockQuery, save.SessionID))
	if err != nil {
		return nil, err
	}
	if state.IsCompleted() {
		return nil, domain.ErrWizardCompleted
	}

	merged := domain.MergeFormData(state.FormData, save.Delta)
	metadata := mergeMetadata(state.Metadata, save.Metadata)

	const update = `
	UPDATE application_states
	SET current_step = $2,
		form_data = $3,
		metadata = $4,
		last_activity = NOW(),
		updated_at = NOW()
	WHERE id = $1
	RETURNING last_activity, updated_at
	`
	if err := tx.QueryRow(ctx, update,
		state.ID,
		save.Step,
		marshalJSON(merged),
		marshalMap(metadata),
	).Scan(&state.LastActivity, &state.UpdatedAt); err != nil {
		return nil, err
	}

	var hasPrior bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM state_transitions WHERE state_id = $1)`,
		state.ID,
	).Scan(&hasPrior); err != nil {
		return nil, err
	}

	fromStep := nullString(state.CurrentStep)
	if !hasPrior {
		fromStep = nil
	}

	const insertTransition = `
	INSERT INTO state_transitions (id, state_id, from_step, to_step, channel, transition_data)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, insertTransition,
		uuid.NewString(),
		state.ID,
		fromStep,
		save.Step,
		string(save.Channel),
		marshalJSON(save.Delta),
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	state.CurrentStep = save.Step
	state.FormData = merged
	state.Metadata = metadata
	return state, nil
}

func (r *stateRepository) SetReferenceCode(ctx context.Context, stateID, code string, expiresAt time.Time) error {
	const query = `
	UPDATE application_states
	SET reference_code = $2, reference_code_expires_at = $3, updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, stateID, code, expiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.WrapError(domain.ErrCodeConflict, "reference code already in use", err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateNotFound
	}
	return nil
}

func (r *stateRepository) UpdateStatus(ctx context.Context, stateID string, status domain.Status) error {
	const query = `
	UPDATE application_states
	SET status = $2, updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, stateID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateNotFound
	}
	return nil
}

func (r *stateRepository) RecordCheckResult(ctx context.Context, stateID, checkType string, result domain.CheckResult, status domain.Status) error {
	const query = `
	UPDATE application_states
	SET check_type = $2,
		check_status = $3,
		check_result = $4,
		status = $5,
		updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query,
		stateID,
		checkType,
		string(result.Outcome),
		marshalJSON(result),
		string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateNotFound
	}
	return nil
}

func (r *stateRepository) ConfirmDeposit(ctx context.Context, stateID, transactionID, method string, amount float64, paidAt time.Time) error {
	const query = `
	UPDATE application_states
	SET deposit_amount = $2,
		deposit_paid = TRUE,
		deposit_paid_at = $3,
		deposit_transaction_id = $4,
		deposit_payment_method = $5,
		updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, stateID, amount, paidAt, transactionID, method)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateNotFound
	}
	return nil
}

func (r *stateRepository) Archive(ctx context.Context, stateID string) error {
	const query = `
	UPDATE application_states
	SET is_archived = TRUE, updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, query, stateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateNotFound
	}
	return nil
}

func (r *stateRepository) List(ctx context.Context, filter repository.StateFilter) ([]domain.ApplicationState, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	query := `SELECT ` + stateColumns + `
	FROM application_states
	WHERE deleted_at IS NULL
	  AND (cardinality($1::text[]) = 0 OR status = ANY($1))
	  AND ($2 = '' OR channel = $2)
	  AND ($3 OR is_archived = FALSE)
	ORDER BY updated_at DESC
	LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query,
		statuses,
		string(filter.Channel),
		filter.IncludeArchived,
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.ApplicationState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

// SweepDelivered soft-deletes applications whose delivery completed before
// the cutoff, batch by batch so the sweep never holds a table-wide lock.
func (r *stateRepository) SweepDelivered(ctx context.Context, cutoff time.Time, batchSize int, dryRun bool) (repository.CleanupReport, error) {
	var report repository.CleanupReport
	if batchSize <= 0 {
		batchSize = 100
	}

	const countQuery = `
	SELECT
		COUNT(*) FILTER (WHERE s.deleted_at IS NULL AND NOT s.exempt_from_auto_deletion),
		COUNT(*) FILTER (WHERE s.deleted_at IS NULL AND s.exempt_from_auto_deletion),
		COUNT(*) FILTER (WHERE s.deleted_at IS NOT NULL)
	FROM application_states s
	JOIN delivery_tracking d ON d.state_id = s.id
	WHERE d.status = 'delivered' AND d.delivered_at < $1
	`
	var deletable int
	if err := r.pool.QueryRow(ctx, countQuery, cutoff).Scan(&deletable, &report.Exempt, &report.AlreadyDeleted); err != nil {
		return report, err
	}

	if dryRun {
		report.Deleted = deletable
		return report, nil
	}

	const deleteBatch = `
	UPDATE application_states
	SET deleted_at = NOW(), updated_at = NOW()
	WHERE id IN (
		SELECT s.id
		FROM application_states s
		JOIN delivery_tracking d ON d.state_id = s.id
		WHERE d.status = 'delivered'
		  AND d.delivered_at < $1
		  AND s.deleted_at IS NULL
		  AND NOT s.exempt_from_auto_deletion
		LIMIT $2
	)
	`
	for {
		tag, err := r.pool.Exec(ctx, deleteBatch, cutoff, batchSize)
		if err != nil {
			return report, err
		}
		affected := int(tag.RowsAffected())
		report.Deleted += affected
		if affected < batchSize {
			break
		}
	}
	return report, nil
}

func scanState(row interface {
	Scan(dest ...interface{}) error
}) (*domain.ApplicationState, error) {
	var (
		state          domain.ApplicationState
		channel        string
		status         string
		formData       []byte
		metadata       []byte
		refCode        *string
		checkType      *string
		checkStatus    *string
		checkResult    []byte
		depositAmount  *float64
		depositTxnID   *string
		depositMethod  *string
	)

	if err := row.Scan(
		&state.ID,
		&state.SessionID,
		&channel,
		&state.UserIdentifier,
		&state.CurrentStep,
		&formData,
		&metadata,
		&refCode,
		&state.ReferenceCodeExpiresAt,
		&status,
		&checkType,
		&checkStatus,
		&checkResult,
		&depositAmount,
		&state.DepositPaid,
		&state.DepositPaidAt,
		&depositTxnID,
		&depositMethod,
		&state.ExpiresAt,
		&state.LastActivity,
		&state.IsArchived,
		&state.ExemptFromAutoDeletion,
		&state.CreatedAt,
		&state.UpdatedAt,
		&state.DeletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStateNotFound
		}
		return nil, err
	}

	state.Channel = domain.Channel(channel)
	state.Status = domain.Status(status)
	if refCode != nil {
		state.ReferenceCode = *refCode
	}
	if checkType != nil {
		state.CheckType = *checkType
	}
	if checkStatus != nil {
		state.CheckStatus = domain.CheckStatus(*checkStatus)
	}
	if depositAmount != nil {
		state.DepositAmount = *depositAmount
	}
	if depositTxnID != nil {
		state.DepositTransactionID = *depositTxnID
	}
	if depositMethod != nil {
		state.DepositPaymentMethod = *depositMethod
	}
	if err := unmarshalColumn("form_data", formData, &state.FormData); err != nil {
		return nil, err
	}
	if state.FormData == nil {
		state.FormData = map[string]interface{}{}
	}
	if err := unmarshalColumn("metadata", metadata, &state.Metadata); err != nil {
		return nil, err
	}
	if len(checkResult) > 0 {
		var result domain.CheckResult
		if err := unmarshalColumn("check_result", checkResult, &result); err != nil {
			return nil, err
		}
		state.CheckResult = &result
	}

	return &state, nil
}

func mergeMetadata(current, delta map[string]string) map[string]string {
	if len(delta) == 0 {
		return current
	}
	merged := make(map[string]string, len(current)+len(delta))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}
	return merged
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
