package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/bancozim/origination/api/transport"
	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/pkg/httpcontext"
	"github.com/bancozim/origination/usecase/status"
)

// AdminHandler exposes the JWT-protected lifecycle operations: manual
// decisions, delivery management, deposit confirmation and archiving.
type AdminHandler struct {
	baseHandler
	statuses         *status.UseCase
	archiveRetention time.Duration
}

func NewAdminHandler(statuses *status.UseCase, archiveRetention time.Duration, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	if archiveRetention <= 0 {
		archiveRetention = 90 * 24 * time.Hour
	}
	return &AdminHandler{
		baseHandler:      newBaseHandler(adapter, logger),
		statuses:         statuses,
		archiveRetention: archiveRetention,
	}
}

// SubmitChecks re-submits an application to the external check pipeline,
// typically after an earlier attempt hit an unreachable bureau.
func (h *AdminHandler) SubmitChecks(ctx *fasthttp.RequestCtx) {
	h.sessionAction(ctx, h.statuses.SubmitForChecks)
}

// Approve applies the manual approval decision.
func (h *AdminHandler) Approve(ctx *fasthttp.RequestCtx) {
	h.sessionAction(ctx, h.statuses.Approve)
}

// Reject applies the manual rejection decision.
func (h *AdminHandler) Reject(ctx *fasthttp.RequestCtx) {
	h.sessionAction(ctx, h.statuses.Reject)
}

// OpenAccount closes an account-opening flow at its terminal status.
func (h *AdminHandler) OpenAccount(ctx *fasthttp.RequestCtx) {
	h.sessionAction(ctx, h.statuses.OpenAccount)
}

// ScheduleDelivery creates the courier record for an approved application.
func (h *AdminHandler) ScheduleDelivery(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	var req transport.ScheduleDeliveryRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	delivery, err := h.statuses.ScheduleDelivery(stdCtx, sessionID, req.CourierType)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, delivery)
}

// UpdateDelivery applies a courier status change; a delivered update
// completes the application.
func (h *AdminHandler) UpdateDelivery(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	deliveryID, _ := ctx.UserValue("id").(string)
	var req transport.DeliveryUpdateRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	delivery, err := h.statuses.HandleDeliveryUpdate(stdCtx, deliveryID, domain.DeliveryStatus(req.Status))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, delivery)
}

// ConfirmDeposit records an upfront payment so delivery can be scheduled.
func (h *AdminHandler) ConfirmDeposit(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	var req transport.DepositConfirmRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.statuses.ConfirmDeposit(stdCtx, sessionID, req.TransactionID, req.Method, req.Amount); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{"session_id": sessionID, "deposit_paid": true})
}

// Archive flags a delivered application once the retention window elapsed.
func (h *AdminHandler) Archive(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	if err := h.statuses.Archive(stdCtx, sessionID, h.archiveRetention); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{"session_id": sessionID, "archived": true})
}

func (h *AdminHandler) sessionAction(ctx *fasthttp.RequestCtx, action func(ctx context.Context, sessionID string) error) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID, _ := ctx.UserValue("session_id").(string)
	if err := action(stdCtx, sessionID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{"session_id": sessionID})
}
