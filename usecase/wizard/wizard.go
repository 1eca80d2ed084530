// Package wizard implements the multi-channel application state store: it
// creates and resumes sessions, validates each step submission through the
// step engine and persists advances together with their audit transitions.
package wizard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/steps"
	"github.com/bancozim/origination/repository"
)

// Config carries the expiry policy for wizard sessions.
type Config struct {
	// SessionTTL is the absolute window an application stays resumable.
	SessionTTL time.Duration
	// IdleTTL bounds channel-session bindings (WhatsApp/USSD continuity).
	IdleTTL time.Duration
}

type UseCase struct {
	states      repository.StateRepository
	transitions repository.TransitionRepository
	sessions    repository.ChannelSessionRepository
	engine      *steps.Engine
	logger      *zap.Logger
	cfg         Config
}

func New(
	states repository.StateRepository,
	transitions repository.TransitionRepository,
	sessions repository.ChannelSessionRepository,
	engine *steps.Engine,
	logger *zap.Logger,
	cfg Config,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = steps.NewEngine()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}
	return &UseCase{
		states:      states,
		transitions: transitions,
		sessions:    sessions,
		engine:      engine,
		logger:      logger,
		cfg:         cfg,
	}
}

// CreateOrGet returns the state for sessionID, creating it at the entry step
// when none exists. Calling it twice with the same sessionID yields the same
// record.
func (uc *UseCase) CreateOrGet(ctx context.Context, sessionID string, channel domain.Channel, userIdentifier string) (*domain.ApplicationState, error) {
	if sessionID == "" || !domain.ValidChannel(channel) {
		return nil, domain.ErrInvalidPayload
	}

	expiresAt := time.Now().Add(uc.cfg.SessionTTL)
	state := &domain.ApplicationState{
		SessionID:      sessionID,
		Channel:        channel,
		UserIdentifier: userIdentifier,
		CurrentStep:    uc.engine.EntryStep(),
		FormData:       map[string]interface{}{},
		Status:         domain.StatusPending,
		ExpiresAt:      &expiresAt,
	}
	return uc.states.CreateIfAbsent(ctx, state)
}

// ResumeOrStart implements channel session continuity for WhatsApp and USSD:
// an identifier with an open, unexpired, non-completed session resumes it;
// anything else starts a fresh session and binds it.
func (uc *UseCase) ResumeOrStart(ctx context.Context, channel domain.Channel, userIdentifier string) (*domain.ApplicationState, bool, error) {
	if userIdentifier == "" || !domain.ValidChannel(channel) {
		return nil, false, domain.ErrInvalidPayload
	}

	if sessionID, err := uc.sessions.ActiveSession(ctx, channel, userIdentifier); err == nil {
		state, err := uc.states.GetBySessionID(ctx, sessionID)
		if err == nil && !state.IsCompleted() && !state.IsExpired(time.Now()) {
			return state, true, nil
		}
		// Completed, expired or vanished: drop the stale binding.
		if clearErr := uc.sessions.Clear(ctx, channel, userIdentifier); clearErr != nil {
			uc.logger.Warn("failed to clear stale channel session", zap.Error(clearErr))
		}
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, false, err
	}

	state, err := uc.CreateOrGet(ctx, uuid.NewString(), channel, userIdentifier)
	if err != nil {
		return nil, false, err
	}
	if err := uc.sessions.Bind(ctx, channel, userIdentifier, state.SessionID, uc.cfg.IdleTTL); err != nil {
		uc.logger.Warn("failed to bind channel session", zap.Error(err))
	}
	return state, false, nil
}

// SaveStep validates the submitted delta against the step engine, merges it
// into the stored form data and records the transition. Validation failures
// leave the store untouched.
func (uc *UseCase) SaveStep(ctx context.Context, save repository.StepSave) (*domain.ApplicationState, error) {
	state, err := uc.states.GetBySessionID(ctx, save.SessionID)
	if err != nil {
		return nil, err
	}
	if state.IsCompleted() {
		return nil, domain.ErrWizardCompleted
	}
	if state.IsExpired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}

	if !uc.engine.CanAdvance(state.CurrentStep, save.Step, state.FormData) {
		return nil, domain.NewValidationError(save.Step, "step")
	}
	if err := uc.engine.Validate(save.Step, state.FormData, save.Delta); err != nil {
		return nil, err
	}

	updated, err := uc.states.SaveStep(ctx, save)
	if err != nil {
		return nil, err
	}

	if updated.IsCompleted() && uc.sessions != nil && updated.UserIdentifier != "" {
		if err := uc.sessions.Clear(ctx, updated.Channel, updated.UserIdentifier); err != nil {
			uc.logger.Warn("failed to clear channel session on completion", zap.Error(err))
		}
	}

	uc.logger.Info("wizard step saved",
		zap.String("session_id", updated.SessionID),
		zap.String("step", updated.CurrentStep),
		zap.String("channel", string(updated.Channel)))
	return updated, nil
}

// Find returns the state for a session id.
func (uc *UseCase) Find(ctx context.Context, sessionID string) (*domain.ApplicationState, error) {
	return uc.states.GetBySessionID(ctx, sessionID)
}

// NextStep exposes the engine's next-step decision for a state, for channel
// adapters rendering the following prompt.
func (uc *UseCase) NextStep(state *domain.ApplicationState) (string, bool) {
	if state == nil {
		return "", false
	}
	return uc.engine.Next(state.CurrentStep, state.FormData)
}

// Transitions returns the audit trail for a session in creation order.
func (uc *UseCase) Transitions(ctx context.Context, sessionID string) ([]domain.StateTransition, error) {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.transitions.ListByState(ctx, state.ID)
}
