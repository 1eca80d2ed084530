package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/steps"
	"github.com/bancozim/origination/repository"
)

type lifecycleStateRepo struct {
	states map[string]*domain.ApplicationState
}

func newLifecycleStateRepo(states ...*domain.ApplicationState) *lifecycleStateRepo {
	repo := &lifecycleStateRepo{states: map[string]*domain.ApplicationState{}}
	for _, s := range states {
		repo.states[s.SessionID] = s
	}
	return repo
}

func (r *lifecycleStateRepo) GetBySessionID(_ context.Context, sessionID string) (*domain.ApplicationState, error) {
	state, ok := r.states[sessionID]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return state, nil
}

func (r *lifecycleStateRepo) UpdateStatus(_ context.Context, stateID string, status domain.Status) error {
	for _, state := range r.states {
		if state.ID == stateID {
			state.Status = status
			return nil
		}
	}
	return domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) RecordCheckResult(_ context.Context, stateID, checkType string, result domain.CheckResult, status domain.Status) error {
	for _, state := range r.states {
		if state.ID == stateID {
			res := result
			state.CheckResult = &res
			state.CheckType = checkType
			state.CheckStatus = result.Outcome
			state.Status = status
			return nil
		}
	}
	return domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) ConfirmDeposit(_ context.Context, stateID, transactionID, method string, amount float64, paidAt time.Time) error {
	for _, state := range r.states {
		if state.ID == stateID {
			state.DepositPaid = true
			state.DepositAmount = amount
			state.DepositTransactionID = transactionID
			state.DepositPaymentMethod = method
			state.DepositPaidAt = &paidAt
			return nil
		}
	}
	return domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) Archive(_ context.Context, stateID string) error {
	for _, state := range r.states {
		if state.ID == stateID {
			state.IsArchived = true
			return nil
		}
	}
	return domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) CreateIfAbsent(_ context.Context, state *domain.ApplicationState) (*domain.ApplicationState, error) {
	return state, nil
}

func (r *lifecycleStateRepo) GetByReferenceCode(_ context.Context, _ string) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) GetByUserIdentifier(_ context.Context, _ string) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) SaveStep(_ context.Context, _ repository.StepSave) (*domain.ApplicationState, error) {
	return nil, domain.ErrStateNotFound
}

func (r *lifecycleStateRepo) SetReferenceCode(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

func (r *lifecycleStateRepo) List(_ context.Context, _ repository.StateFilter) ([]domain.ApplicationState, error) {
	return nil, nil
}

func (r *lifecycleStateRepo) SweepDelivered(_ context.Context, _ time.Time, _ int, _ bool) (repository.CleanupReport, error) {
	return repository.CleanupReport{}, nil
}

type memDeliveryRepo struct {
	deliveries map[string]*domain.DeliveryTracking
}

func newMemDeliveryRepo() *memDeliveryRepo {
	return &memDeliveryRepo{deliveries: map[string]*domain.DeliveryTracking{}}
}

func (r *memDeliveryRepo) Create(_ context.Context, delivery *domain.DeliveryTracking) (*domain.DeliveryTracking, error) {
	if delivery.ID == "" {
		delivery.ID = "dlv-" + delivery.StateID
	}
	if delivery.Status == "" {
		delivery.Status = domain.DeliveryPending
	}
	delivery.CreatedAt = time.Now()
	delivery.UpdatedAt = delivery.CreatedAt
	r.deliveries[delivery.ID] = delivery
	return delivery, nil
}

func (r *memDeliveryRepo) GetByStateID(_ context.Context, stateID string) (*domain.DeliveryTracking, error) {
	for _, d := range r.deliveries {
		if d.StateID == stateID {
			return d, nil
		}
	}
	return nil, domain.ErrDeliveryNotFound
}

func (r *memDeliveryRepo) UpdateStatus(_ context.Context, id string, status domain.DeliveryStatus) (*domain.DeliveryTracking, error) {
	delivery, ok := r.deliveries[id]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	delivery.Status = status
	delivery.UpdatedAt = time.Now()
	if status == domain.DeliveryDelivered {
		now := time.Now()
		delivery.DeliveredAt = &now
	}
	return delivery, nil
}

type stubChecker struct {
	result  *domain.CheckResult
	err     error
	submits []CheckSubmission
}

func (c *stubChecker) Submit(_ context.Context, sub CheckSubmission) (*domain.CheckResult, error) {
	c.submits = append(c.submits, sub)
	return c.result, c.err
}

func completedState(sessionID string, formData map[string]interface{}) *domain.ApplicationState {
	if formData == nil {
		formData = map[string]interface{}{}
	}
	return &domain.ApplicationState{
		ID:          "state-" + sessionID,
		SessionID:   sessionID,
		CurrentStep: domain.StepCompleted,
		Status:      domain.StatusPending,
		FormData:    formData,
	}
}

func TestSubmitForChecksRoutesByEmployer(t *testing.T) {
	state := completedState("sess-1", map[string]interface{}{"employer": steps.EmployerSSB})
	repo := newLifecycleStateRepo(state)
	checker := &stubChecker{}
	uc := New(repo, newMemDeliveryRepo(), checker, nil)

	require.NoError(t, uc.SubmitForChecks(context.Background(), "sess-1"))

	assert.Equal(t, domain.StatusAwaitingSSBApproval, state.Status)
	require.Len(t, checker.submits, 1)
	assert.Equal(t, CheckTypeSSB, checker.submits[0].CheckType)
}

func TestSubmitForChecksCarriesNationalID(t *testing.T) {
	state := completedState("sess-1", map[string]interface{}{
		"formResponses": map[string]interface{}{"nationalId": "63-123456A12"},
	})
	checker := &stubChecker{}
	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), checker, nil)

	require.NoError(t, uc.SubmitForChecks(context.Background(), "sess-1"))

	require.Len(t, checker.submits, 1)
	assert.Equal(t, "63-123456A12", checker.submits[0].NationalID)

	// No national id captured: the submission still goes out, with it blank.
	other := completedState("sess-2", nil)
	uc = New(newLifecycleStateRepo(other), newMemDeliveryRepo(), checker, nil)
	require.NoError(t, uc.SubmitForChecks(context.Background(), "sess-2"))
	require.Len(t, checker.submits, 2)
	assert.Empty(t, checker.submits[1].NationalID)
}

func TestSubmitForChecksRejectsUnfinishedWizard(t *testing.T) {
	state := completedState("sess-1", nil)
	state.CurrentStep = domain.StepForm
	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), &stubChecker{}, nil)

	err := uc.SubmitForChecks(context.Background(), "sess-1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
}

// An unreachable check service must leave the application in its awaiting
// state, never in approved or rejected.
func TestSubmitForChecksServiceDownLeavesAwaiting(t *testing.T) {
	state := completedState("sess-1", nil)
	checker := &stubChecker{err: errors.New("connection refused")}
	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), checker, nil)

	err := uc.SubmitForChecks(context.Background(), "sess-1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeExternalService))
	assert.Equal(t, domain.StatusAwaitingCreditCheck, state.Status)
}

func TestSubmitForChecksSynchronousOutcome(t *testing.T) {
	state := completedState("sess-1", nil)
	checker := &stubChecker{result: &domain.CheckResult{
		AttemptID:   "att-1",
		Outcome:     domain.CheckStatusSuccess,
		CompletedAt: time.Now(),
	}}
	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), checker, nil)

	require.NoError(t, uc.SubmitForChecks(context.Background(), "sess-1"))
	assert.Equal(t, domain.StatusApproved, state.Status)
}

func TestRecordCheckOutcomeSuppressesDuplicates(t *testing.T) {
	state := completedState("sess-1", nil)
	state.Status = domain.StatusAwaitingCreditCheck
	first := domain.CheckResult{
		AttemptID:   "att-1",
		Outcome:     domain.CheckStatusSuccess,
		CompletedAt: time.Now(),
	}
	state.CheckResult = &first
	state.Status = domain.StatusApproved

	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), &stubChecker{}, nil)

	// Same attempt delivered twice.
	err := uc.RecordCheckOutcome(context.Background(), "sess-1", domain.CheckResult{
		AttemptID:   "att-1",
		Outcome:     domain.CheckStatusFailure,
		CompletedAt: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, state.Status, "duplicate attempt must not flip the decision")

	// Older result arriving late.
	err = uc.RecordCheckOutcome(context.Background(), "sess-1", domain.CheckResult{
		AttemptID:   "att-0",
		Outcome:     domain.CheckStatusFailure,
		CompletedAt: first.CompletedAt.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, state.Status, "stale result must not flip the decision")
}

func TestRecordCheckOutcomeBlacklistedOnCreditPath(t *testing.T) {
	state := completedState("sess-1", nil)
	state.Status = domain.StatusAwaitingCreditCheck
	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), &stubChecker{}, nil)

	err := uc.RecordCheckOutcome(context.Background(), "sess-1", domain.CheckResult{
		AttemptID:   "att-1",
		Outcome:     domain.CheckStatusBlacklisted,
		CompletedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreditCheckPoorRejected, state.Status)
}

func TestScheduleDeliveryRequiresDeposit(t *testing.T) {
	state := completedState("sess-1", nil)
	state.Status = domain.StatusApproved
	state.DepositAmount = 150

	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), &stubChecker{}, nil)

	_, err := uc.ScheduleDelivery(context.Background(), "sess-1", "courier")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	state.DepositPaid = true
	delivery, err := uc.ScheduleDelivery(context.Background(), "sess-1", "courier")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryPending, delivery.Status)
	assert.Equal(t, domain.StatusApprovedAwaitingDelivery, state.Status)
}

func TestDeliveredUpdateCompletesApplication(t *testing.T) {
	state := completedState("sess-1", nil)
	state.Status = domain.StatusApproved
	deliveries := newMemDeliveryRepo()
	uc := New(newLifecycleStateRepo(state), deliveries, &stubChecker{}, nil)

	delivery, err := uc.ScheduleDelivery(context.Background(), "sess-1", "courier")
	require.NoError(t, err)

	_, err = uc.HandleDeliveryUpdate(context.Background(), delivery.ID, domain.DeliveryInTransit)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApprovedAwaitingDelivery, state.Status, "transit does not complete")

	_, err = uc.HandleDeliveryUpdate(context.Background(), delivery.ID, domain.DeliveryDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, state.Status)
}

func TestOpenAccountOnlyForAccountFlows(t *testing.T) {
	loan := completedState("sess-1", map[string]interface{}{"intent": domain.IntentHirePurchase})
	loan.Status = domain.StatusApproved
	account := completedState("sess-2", map[string]interface{}{"intent": domain.IntentZBAccount})
	account.Status = domain.StatusApproved

	uc := New(newLifecycleStateRepo(loan, account), newMemDeliveryRepo(), &stubChecker{}, nil)

	err := uc.OpenAccount(context.Background(), "sess-1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	require.NoError(t, uc.OpenAccount(context.Background(), "sess-2"))
	assert.Equal(t, domain.StatusAccountOpened, account.Status)
}

func TestArchiveRequiresRetentionElapsed(t *testing.T) {
	state := completedState("sess-1", nil)
	state.Status = domain.StatusCompleted
	deliveries := newMemDeliveryRepo()
	deliveredAt := time.Now().Add(-30 * 24 * time.Hour)
	deliveries.deliveries["dlv-1"] = &domain.DeliveryTracking{
		ID:          "dlv-1",
		StateID:     state.ID,
		Status:      domain.DeliveryDelivered,
		DeliveredAt: &deliveredAt,
	}

	uc := New(newLifecycleStateRepo(state), deliveries, &stubChecker{}, nil)
	retention := 90 * 24 * time.Hour

	err := uc.Archive(context.Background(), "sess-1", retention)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
	assert.False(t, state.IsArchived)

	old := time.Now().Add(-120 * 24 * time.Hour)
	deliveries.deliveries["dlv-1"].DeliveredAt = &old
	require.NoError(t, uc.Archive(context.Background(), "sess-1", retention))
	assert.True(t, state.IsArchived)
}

func TestStatusGraphRejectsIllegalJumps(t *testing.T) {
	state := completedState("sess-1", nil)
	uc := New(newLifecycleStateRepo(state), newMemDeliveryRepo(), &stubChecker{}, nil)

	err := uc.Approve(context.Background(), "sess-1")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict), "pending cannot jump straight to approved")
}
