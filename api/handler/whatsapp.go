package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/bancozim/origination/api/transport"
	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/internal/channels"
	"github.com/bancozim/origination/pkg/httpcontext"
	"github.com/bancozim/origination/repository"
	"github.com/bancozim/origination/usecase/wizard"
)

// WhatsAppHandler drives the wizard over inbound chat messages. The phone
// number is the continuity key: an open session resumes at its pending
// question, a completed or expired one starts fresh.
type WhatsAppHandler struct {
	baseHandler
	wizard     *wizard.UseCase
	text       *channels.Adapter
	completion *CompletionFlow
}

func NewWhatsAppHandler(
	wizardUC *wizard.UseCase,
	text *channels.Adapter,
	completion *CompletionFlow,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *WhatsAppHandler {
	if text == nil {
		text = channels.NewAdapter(nil)
	}
	return &WhatsAppHandler{
		baseHandler: newBaseHandler(adapter, logger),
		wizard:      wizardUC,
		text:        text,
		completion:  completion,
	}
}

// Webhook handles one inbound message from the messaging gateway.
func (h *WhatsAppHandler) Webhook(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.WhatsAppInboundRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	state, resumed, err := h.wizard.ResumeOrStart(stdCtx, domain.ChannelWhatsApp, req.From)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	reply := h.converse(stdCtx, state, resumed, req.Body)
	h.respondSuccess(ctx, http.StatusOK, transport.ChannelReply{
		SessionID: state.SessionID,
		Message:   reply,
		End:       false,
	})
}

// converse advances the wizard by one answer and returns the next message.
// The first message of a fresh session is a greeting, not an answer.
func (h *WhatsAppHandler) converse(ctx context.Context, state *domain.ApplicationState, resumed bool, body string) string {
	pending, ok := h.text.PendingStep(state)
	if !ok {
		return channels.ConfirmationMessage(state.ReferenceCode)
	}
	if !resumed {
		return h.text.Prompt(pending, state.FormData)
	}

	delta, err := h.text.Parse(pending, body)
	if err != nil {
		return "Sorry, I did not understand that.\n\n" + h.text.Prompt(pending, state.FormData)
	}

	updated, err := h.wizard.SaveStep(ctx, repository.StepSave{
		SessionID: state.SessionID,
		Channel:   domain.ChannelWhatsApp,
		Step:      pending,
		Delta:     delta,
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeValidation) {
			return "Some details are missing.\n\n" + h.text.Prompt(pending, state.FormData)
		}
		h.logger.Error("whatsapp step save failed",
			zap.String("session_id", state.SessionID),
			zap.Error(err))
		return "Something went wrong, please try again."
	}
	state = updated

	// The summary confirmation is the last question; the final submission
	// carries the accumulated form responses.
	if next, ok := h.wizard.NextStep(state); ok && next == domain.StepCompleted {
		state, err = h.wizard.SaveStep(ctx, repository.StepSave{
			SessionID: state.SessionID,
			Channel:   domain.ChannelWhatsApp,
			Step:      domain.StepCompleted,
			Delta:     channels.CompletionDelta(state),
		})
		if err != nil {
			h.logger.Error("whatsapp completion failed",
				zap.String("session_id", state.SessionID),
				zap.Error(err))
			return "Something went wrong, please try again."
		}
	}

	if state.IsCompleted() {
		code := h.completion.finalize(ctx, state)
		return channels.ConfirmationMessage(code)
	}

	next, ok := h.text.PendingStep(state)
	if !ok {
		return channels.ConfirmationMessage(state.ReferenceCode)
	}
	return h.text.Prompt(next, state.FormData)
}
