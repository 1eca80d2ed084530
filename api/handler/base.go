package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/bancozim/origination/api/transport"
	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) decodeBody(ctx *fasthttp.RequestCtx, out interface{}) error {
	if err := json.Unmarshal(ctx.PostBody(), out); err != nil {
		return domain.ErrInvalidPayload
	}
	return nil
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code, message := mapError(err)

	var meta interface{}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		meta = map[string]interface{}{"step": vErr.Step, "fields": vErr.Fields}
	}

	h.respondJSON(ctx, status, transport.NewError(code, message, meta))
}

// mapError flattens domain errors onto HTTP. Expired surfaces as not found so
// callers cannot distinguish an expired code from one that never existed, and
// external-service failures never leak upstream detail.
func mapError(err error) (int, string, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized), "unauthorized"
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden), "forbidden"
	case domain.IsDomainError(err, domain.ErrCodeValidation):
		return http.StatusBadRequest, string(domain.ErrCodeValidation), err.Error()
	case domain.IsDomainError(err, domain.ErrCodeExpired):
		return http.StatusNotFound, string(domain.ErrCodeNotFound), "not found"
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound), "not found"
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, string(domain.ErrCodeConflict), err.Error()
	case domain.IsDomainError(err, domain.ErrCodeExternalService):
		return http.StatusServiceUnavailable, string(domain.ErrCodeExternalService), "application is still processing"
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal), "internal error"
	}
}
