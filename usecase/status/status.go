// Package status drives the post-wizard lifecycle: submission to external
// credit/SSB checks, approval and rejection, delivery-driven progress and
// archiving. The wizard never touches a record again once this engine owns
// it.
package status

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/steps"
	"github.com/bancozim/origination/repository"
)

// Check types submitted to the external bureau.
const (
	CheckTypeSSB    = "ssb"
	CheckTypeCredit = "credit"
)

// CheckSubmission is what the external check service receives.
type CheckSubmission struct {
	StateID    string                 `json:"state_id"`
	SessionID  string                 `json:"session_id"`
	CheckType  string                 `json:"check_type"`
	NationalID string                 `json:"national_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// CheckSubmitter abstracts the SSB/credit-bureau client. A nil result with a
// nil error means the check was accepted and the outcome will arrive later
// through RecordCheckOutcome.
type CheckSubmitter interface {
	Submit(ctx context.Context, sub CheckSubmission) (*domain.CheckResult, error)
}

// allowedTransitions is the status graph. Absent keys are terminal.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusPending:                  {domain.StatusPendingVerification, domain.StatusSentForChecks},
	domain.StatusPendingVerification:      {domain.StatusSentForChecks, domain.StatusRejected},
	domain.StatusSentForChecks:            {domain.StatusAwaitingCreditCheck, domain.StatusAwaitingSSBApproval},
	domain.StatusAwaitingCreditCheck:      {domain.StatusApproved, domain.StatusRejected, domain.StatusCreditCheckPoorRejected},
	domain.StatusAwaitingSSBApproval:      {domain.StatusApproved, domain.StatusRejected},
	domain.StatusApproved:                 {domain.StatusApprovedAwaitingDelivery, domain.StatusAccountOpened},
	domain.StatusApprovedAwaitingDelivery: {domain.StatusCompleted},
}

func canTransition(from, to domain.Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type UseCase struct {
	states     repository.StateRepository
	deliveries repository.DeliveryRepository
	checker    CheckSubmitter
	logger     *zap.Logger
}

func New(states repository.StateRepository, deliveries repository.DeliveryRepository, checker CheckSubmitter, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		states:     states,
		deliveries: deliveries,
		checker:    checker,
		logger:     logger,
	}
}

// SubmitForChecks moves a completed application into the appropriate
// awaiting state and hands it to the external check service. When the
// service is unreachable the status stays in the awaiting state and the
// submission can be retried; approved/rejected are never reached on error.
func (uc *UseCase) SubmitForChecks(ctx context.Context, sessionID string) error {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !state.IsCompleted() {
		return domain.NewError(domain.ErrCodeConflict, "application has not completed the wizard")
	}

	checkType := checkTypeFor(state)
	awaiting := domain.StatusAwaitingCreditCheck
	if checkType == CheckTypeSSB {
		awaiting = domain.StatusAwaitingSSBApproval
	}

	if state.Status == domain.StatusPending || state.Status == domain.StatusPendingVerification {
		if err := uc.transition(ctx, state, domain.StatusSentForChecks); err != nil {
			return err
		}
		state.Status = domain.StatusSentForChecks
	}
	if state.Status == domain.StatusSentForChecks {
		if err := uc.transition(ctx, state, awaiting); err != nil {
			return err
		}
		state.Status = awaiting
	}
	if state.Status != awaiting {
		return domain.NewError(domain.ErrCodeConflict, "application is not awaiting checks")
	}

	result, err := uc.checker.Submit(ctx, CheckSubmission{
		StateID:    state.ID,
		SessionID:  state.SessionID,
		CheckType:  checkType,
		NationalID: nationalID(state),
		Payload:    state.FormData,
	})
	if err != nil {
		// Status deliberately left in the awaiting state; the caller may retry.
		uc.logger.Error("check submission failed",
			zap.String("session_id", sessionID),
			zap.String("check_type", checkType),
			zap.Error(err))
		return domain.WrapError(domain.ErrCodeExternalService, "check service unavailable", err)
	}
	if result != nil {
		return uc.RecordCheckOutcome(ctx, sessionID, *result)
	}
	return nil
}

// RecordCheckOutcome persists an external check result and applies the
// approved/rejected branch. Duplicate results are suppressed: an outcome for
// the attempt already recorded, or older than it, is ignored.
func (uc *UseCase) RecordCheckOutcome(ctx context.Context, sessionID string, result domain.CheckResult) error {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	if prev := state.CheckResult; prev != nil {
		if prev.AttemptID == result.AttemptID || !result.CompletedAt.After(prev.CompletedAt) {
			uc.logger.Info("duplicate check result suppressed",
				zap.String("session_id", sessionID),
				zap.String("attempt_id", result.AttemptID))
			return nil
		}
	}

	next, ok := outcomeStatus(state, result.Outcome)
	if !ok {
		return domain.NewError(domain.ErrCodeConflict, "unknown check outcome")
	}
	if !canTransition(state.Status, next) {
		return domain.NewError(domain.ErrCodeConflict, "check outcome not applicable in current status")
	}

	if err := uc.states.RecordCheckResult(ctx, state.ID, checkTypeFor(state), result, next); err != nil {
		return err
	}
	uc.logger.Info("check outcome recorded",
		zap.String("session_id", sessionID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("status", string(next)))
	return nil
}

// Approve is the manual admin override for applications awaiting a decision.
func (uc *UseCase) Approve(ctx context.Context, sessionID string) error {
	return uc.transitionSession(ctx, sessionID, domain.StatusApproved)
}

// Reject is the manual admin rejection; the record is retained for audit.
func (uc *UseCase) Reject(ctx context.Context, sessionID string) error {
	return uc.transitionSession(ctx, sessionID, domain.StatusRejected)
}

// OpenAccount closes an account-opening-only flow at its alternate terminal.
func (uc *UseCase) OpenAccount(ctx context.Context, sessionID string) error {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if state.Intent() != domain.IntentZBAccount {
		return domain.NewError(domain.ErrCodeConflict, "not an account-opening application")
	}
	return uc.transition(ctx, state, domain.StatusAccountOpened)
}

// ScheduleDelivery creates the courier record and moves the application to
// awaiting delivery. Products carrying a deposit must have it paid first.
func (uc *UseCase) ScheduleDelivery(ctx context.Context, sessionID, courierType string) (*domain.DeliveryTracking, error) {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.DepositAmount > 0 && !state.DepositPaid {
		return nil, domain.NewError(domain.ErrCodeConflict, "deposit not paid")
	}
	if err := uc.transition(ctx, state, domain.StatusApprovedAwaitingDelivery); err != nil {
		return nil, err
	}
	return uc.deliveries.Create(ctx, &domain.DeliveryTracking{
		StateID:     state.ID,
		CourierType: courierType,
	})
}

// HandleDeliveryUpdate applies a courier status change and, when the goods
// arrive, completes the application. Failed or returned deliveries leave the
// status untouched for another attempt.
func (uc *UseCase) HandleDeliveryUpdate(ctx context.Context, deliveryID string, status domain.DeliveryStatus) (*domain.DeliveryTracking, error) {
	delivery, err := uc.deliveries.UpdateStatus(ctx, deliveryID, status)
	if err != nil {
		return nil, err
	}
	if status == domain.DeliveryDelivered {
		if err := uc.states.UpdateStatus(ctx, delivery.StateID, domain.StatusCompleted); err != nil {
			uc.logger.Error("failed to complete application after delivery",
				zap.String("state_id", delivery.StateID),
				zap.Error(err))
			return delivery, err
		}
	}
	return delivery, nil
}

// ConfirmDeposit records an upfront payment for deposit-bearing products.
func (uc *UseCase) ConfirmDeposit(ctx context.Context, sessionID, transactionID, method string, amount float64) error {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	return uc.states.ConfirmDeposit(ctx, state.ID, transactionID, method, amount, time.Now())
}

// Archive flags a completed application, allowed only 90 days after delivery.
func (uc *UseCase) Archive(ctx context.Context, sessionID string, retention time.Duration) error {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	delivery, err := uc.deliveries.GetByStateID(ctx, state.ID)
	if err != nil {
		return err
	}
	if delivery.Status != domain.DeliveryDelivered || delivery.DeliveredAt == nil {
		return domain.NewError(domain.ErrCodeConflict, "application has not been delivered")
	}
	if time.Since(*delivery.DeliveredAt) < retention {
		return domain.NewError(domain.ErrCodeConflict, "retention period has not elapsed")
	}
	return uc.states.Archive(ctx, state.ID)
}

func (uc *UseCase) transitionSession(ctx context.Context, sessionID string, to domain.Status) error {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	return uc.transition(ctx, state, to)
}

func (uc *UseCase) transition(ctx context.Context, state *domain.ApplicationState, to domain.Status) error {
	if !canTransition(state.Status, to) {
		return domain.NewError(domain.ErrCodeConflict, "status transition not allowed")
	}
	return uc.states.UpdateStatus(ctx, state.ID, to)
}

func checkTypeFor(state *domain.ApplicationState) string {
	if employer, _ := state.FormData["employer"].(string); employer == steps.EmployerSSB {
		return CheckTypeSSB
	}
	return CheckTypeCredit
}

// nationalID reads the national id out of the captured form responses. The
// bureau requires it; an application that somehow completed without one is
// submitted with an empty id and rejected on their side.
func nationalID(state *domain.ApplicationState) string {
	responses, _ := state.FormData["formResponses"].(map[string]interface{})
	if id, ok := responses["nationalId"].(string); ok {
		return id
	}
	return ""
}

func outcomeStatus(state *domain.ApplicationState, outcome domain.CheckStatus) (domain.Status, bool) {
	switch outcome {
	case domain.CheckStatusSuccess, domain.CheckStatusApproved:
		return domain.StatusApproved, true
	case domain.CheckStatusFailure:
		return domain.StatusRejected, true
	case domain.CheckStatusBlacklisted:
		if state.Status == domain.StatusAwaitingCreditCheck {
			return domain.StatusCreditCheckPoorRejected, true
		}
		return domain.StatusRejected, true
	}
	return "", false
}
