package handler

import (
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

// USSDHandler renders the wizard as numbered menus for the USSD gateway.
// The msisdn carries session continuity, exactly like the WhatsApp phone
// mapping; "0" re-shows the current menu.
type USSDHandler struct {
	baseHandler
	wizard     *wizard.UseCase
	text       *channels.Adapter
	completion *CompletionFlow
}

func NewUSSDHandler(
	wizardUC *wizard.UseCase,
	text *channels.Adapter,
	completion *CompletionFlow,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *USSDHandler {
	if text == nil {
		text = channels.NewAdapter(nil)
	}
	return &USSDHandler{
		baseHandler: newBaseHandler(adapter, logger),
		wizard:      wizardUC,
		text:        text,
		completion:  completion,
	}
}

// Session handles one USSD round-trip.
func (h *USSDHandler) Session(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.USSDRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	state, resumed, err := h.wizard.ResumeOrStart(stdCtx, domain.ChannelUSSD, req.Msisdn)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	pending, ok := h.text.PendingStep(state)
	if !ok {
		h.reply(ctx, state.SessionID, channels.ConfirmationMessage(state.ReferenceCode), true)
		return
	}

	// A dial-in or a back keypress shows the menu without consuming input.
	if !resumed || req.Text == "" || req.Text == channels.BackKey {
		h.reply(ctx, state.SessionID, h.text.Prompt(pending, state.FormData), false)
		return
	}

	delta, err := h.text.Parse(pending, req.Text)
	if err != nil {
		h.reply(ctx, state.SessionID, "Invalid choice.\n"+h.text.Prompt(pending, state.FormData), false)
		return
	}

	updated, err := h.wizard.SaveStep(stdCtx, repository.StepSave{
		SessionID: state.SessionID,
		Channel:   domain.ChannelUSSD,
		Step:      pending,
		Delta:     delta,
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeValidation) {
			h.reply(ctx, state.SessionID, "Invalid choice.\n"+h.text.Prompt(pending, state.FormData), false)
			return
		}
		h.respondError(ctx, err)
		return
	}
	state = updated

	if next, ok := h.wizard.NextStep(state); ok && next == domain.StepCompleted {
		state, err = h.wizard.SaveStep(stdCtx, repository.StepSave{
			SessionID: state.SessionID,
			Channel:   domain.ChannelUSSD,
			Step:      domain.StepCompleted,
			Delta:     channels.CompletionDelta(state),
		})
		if err != nil {
			h.respondError(ctx, err)
			return
		}
	}

	if state.IsCompleted() {
		code := h.completion.finalize(stdCtx, state)
		h.reply(ctx, state.SessionID, channels.ConfirmationMessage(code), true)
		return
	}

	next, ok := h.text.PendingStep(state)
	if !ok {
		h.reply(ctx, state.SessionID, channels.ConfirmationMessage(state.ReferenceCode), true)
		return
	}
	h.reply(ctx, state.SessionID, h.text.Prompt(next, state.FormData), false)
}

func (h *USSDHandler) reply(ctx *fasthttp.RequestCtx, sessionID, message string, end bool) {
	h.respondSuccess(ctx, http.StatusOK, transport.ChannelReply{
		SessionID: sessionID,
		Message:   message,
		End:       end,
	})
}
