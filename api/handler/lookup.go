package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/bancozim/origination/api/transport"
	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/pkg/httpcontext"
	"github.com/bancozim/origination/usecase/refcode"
)

// LookupHandler serves the public reference-code surface. It never reveals
// whether a failed code was expired or simply never issued.
type LookupHandler struct {
	baseHandler
	refcodes *refcode.UseCase
}

func NewLookupHandler(refcodes *refcode.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *LookupHandler {
	return &LookupHandler{
		baseHandler: newBaseHandler(adapter, logger),
		refcodes:    refcodes,
	}
}

// Validate reports whether the submitted code resolves to a live application.
func (h *LookupHandler) Validate(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LookupRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	err := h.refcodes.Validate(stdCtx, req.Code)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{"valid": false})
			return
		}
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{"valid": true})
}

// Resolve returns the summary the front-end needs to either resume the
// wizard or show a status page. National-ID lookup is the alternate
// strategy for customers who lost their code.
func (h *LookupHandler) Resolve(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LookupRequest
	if err := h.decodeBody(ctx, &req); err != nil {
		h.respondError(ctx, err)
		return
	}

	var (
		state *domain.ApplicationState
		err   error
	)
	switch {
	case req.Code != "":
		state, err = h.refcodes.Resolve(stdCtx, req.Code)
	case req.NationalID != "":
		state, err = h.refcodes.ResolveNationalID(stdCtx, req.NationalID)
	default:
		err = domain.ErrInvalidPayload
	}
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, transport.StateSummary{
		SessionID:   state.SessionID,
		CurrentStep: state.CurrentStep,
		Status:      string(state.Status),
	})
}
