package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/bancozim/origination/api/transport"
	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/pkg/httpcontext"
	"github.com/bancozim/origination/repository"
	"github.com/bancozim/origination/usecase/wizard"
)

// WizardHandler serves the JSON wizard surface used by the web and mobile
// app channels.
type WizardHandler struct {
	baseHandler
	wizard     *wizard.UseCase
	completion *CompletionFlow
}

func NewWizardHandler(
	wizardUC *wizard.UseCase,
	completion *CompletionFlow,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *WizardHandler {
	return &WizardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		wizard:      wizardUC,
		completion:  completion,
	}
}

// Start opens the wizard session, or returns the existing one for the same
// session id.
func (h *WizardHandler) Start(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.StartApplicationRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	channel := domain.Channel(req.Channel)
	if channel == "" {
		channel = domain.ChannelWeb
	}

	state, err := h.wizard.CreateOrGet(stdCtx, req.SessionID, channel, req.UserIdentifier)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.statePayload(state))
}

// Get returns the current state for a session.
func (h *WizardHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	state, err := h.wizard.Find(stdCtx, sessionID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.statePayload(state))
}

// SaveStep validates and persists one step submission. Reaching the
// completed step triggers the completion flow and the issued reference code
// is included in the response.
func (h *WizardHandler) SaveStep(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	step, _ := ctx.UserValue("step").(string)

	var req transport.StepRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	channel := domain.Channel(req.Channel)
	if channel == "" {
		channel = domain.ChannelWeb
	}

	state, err := h.wizard.SaveStep(stdCtx, repository.StepSave{
		SessionID: sessionID,
		Channel:   channel,
		Step:      step,
		Delta:     req.Data,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	payload := h.statePayload(state)
	if state.IsCompleted() {
		payload["reference_code"] = h.completion.finalize(stdCtx, state)
	}
	h.respondSuccess(ctx, http.StatusOK, payload)
}

// Transitions returns the audit trail for a session.
func (h *WizardHandler) Transitions(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	transitions, err := h.wizard.Transitions(stdCtx, sessionID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"session_id":  sessionID,
		"transitions": transitions,
	})
}

func (h *WizardHandler) statePayload(state *domain.ApplicationState) map[string]interface{} {
	payload := map[string]interface{}{
		"state": state,
	}
	if next, ok := h.wizard.NextStep(state); ok {
		payload["next_step"] = next
	}
	return payload
}
