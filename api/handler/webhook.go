package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/bancozim/origination/api/transport"
	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/pkg/httpcontext"
	"github.com/bancozim/origination/usecase/status"
)

// WebhookHandler receives asynchronous callbacks from the check bureau.
// Duplicate deliveries of the same attempt are acknowledged but ignored.
type WebhookHandler struct {
	baseHandler
	statuses *status.UseCase
}

func NewWebhookHandler(statuses *status.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		baseHandler: newBaseHandler(adapter, logger),
		statuses:    statuses,
	}
}

// CheckResult records one bureau outcome.
func (h *WebhookHandler) CheckResult(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.CheckResultRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}
	if req.SessionID == "" || req.AttemptID == "" || req.Outcome == "" {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	completedAt := time.Now()
	if req.CompletedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CompletedAt)
		if err != nil {
			h.respondError(ctx, domain.ErrInvalidPayload)
			return
		}
		completedAt = parsed
	}

	err := h.statuses.RecordCheckOutcome(stdCtx, req.SessionID, domain.CheckResult{
		AttemptID:   req.AttemptID,
		Outcome:     domain.CheckStatus(req.Outcome),
		Detail:      req.Detail,
		CompletedAt: completedAt,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"session_id": req.SessionID,
		"attempt_id": req.AttemptID,
	})
}
