package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/channels"
	"github.com/bancozim/origination/internal/infrastructure/buffer"
	"github.com/bancozim/origination/internal/infrastructure/notify"
	"github.com/bancozim/origination/internal/services"
	"github.com/bancozim/origination/usecase/refcode"
	"github.com/bancozim/origination/usecase/status"
)

// CompletionFlow runs the shared post-submission sequence: issue a reference
// code, hand the application to the check pipeline, and queue the customer
// confirmation. Every channel handler funnels through the same instance so
// in-flight check submissions can be awaited on shutdown.
type CompletionFlow struct {
	refcodes *refcode.UseCase
	statuses *status.UseCase
	notifier *services.NotifyProcessor
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewCompletionFlow(refcodes *refcode.UseCase, statuses *status.UseCase, notifier *services.NotifyProcessor, logger *zap.Logger) *CompletionFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionFlow{
		refcodes: refcodes,
		statuses: statuses,
		notifier: notifier,
		logger:   logger,
	}
}

// finalize returns the reference code issued for the submission. Check
// submission runs detached so it never holds the customer's response; the
// goroutine is tracked and awaited by Wait during shutdown.
func (f *CompletionFlow) finalize(ctx context.Context, state *domain.ApplicationState) string {
	code, err := f.refcodes.Generate(ctx, state.SessionID)
	if err != nil {
		f.logger.Error("failed to issue reference code",
			zap.String("session_id", state.SessionID),
			zap.Error(err))
	}

	sessionID := state.SessionID
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := f.statuses.SubmitForChecks(checkCtx, sessionID); err != nil {
			f.logger.Error("check submission failed after completion",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}()

	f.confirm(ctx, state, code)
	return code
}

// Wait blocks until all detached check submissions have finished, or the
// context expires.
func (f *CompletionFlow) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *CompletionFlow) confirm(ctx context.Context, state *domain.ApplicationState, code string) {
	if f.notifier == nil || state.UserIdentifier == "" {
		return
	}

	channel := notify.ChannelSMS
	if state.Channel == domain.ChannelWhatsApp {
		channel = notify.ChannelWhatsApp
	}
	n := buffer.Notification{
		SessionID: state.SessionID,
		Recipient: state.UserIdentifier,
		Channel:   channel,
		Body:      channels.ConfirmationMessage(code),
	}
	if err := f.notifier.Dispatch(ctx, n); err != nil {
		f.logger.Warn("failed to queue completion confirmation",
			zap.String("session_id", state.SessionID),
			zap.Error(err))
	}
}
