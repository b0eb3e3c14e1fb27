package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/pkg/httpcontext"
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

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, NewSuccess(data, nil))
}

// respondError answers with the display message of err; the upstream status,
// when there was one, goes into meta.
func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	var meta interface{}
	if dErr, ok := domain.AsError(err); ok && dErr.StatusCode() != 0 {
		meta = map[string]int{"upstream_status": dErr.StatusCode()}
	}
	h.respondJSON(ctx, status, NewError(code, domain.DisplayMessage(err), meta))
}

func mapError(err error) (int, string) {
	dErr, ok := domain.AsError(err)
	if !ok {
		return http.StatusInternalServerError, string(domain.ErrCodeUnknown)
	}
	switch dErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest, string(dErr.Code)
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized, string(dErr.Code)
	case domain.ErrCodeForbidden:
		return http.StatusForbidden, string(dErr.Code)
	case domain.ErrCodeNotFound:
		return http.StatusNotFound, string(dErr.Code)
	case domain.ErrCodeConflict:
		return http.StatusConflict, string(dErr.Code)
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests, string(dErr.Code)
	case domain.ErrCodeRejected:
		return http.StatusUnprocessableEntity, string(dErr.Code)
	case domain.ErrCodeServer, domain.ErrCodeNetwork, domain.ErrCodeResponseFormat:
		return http.StatusBadGateway, string(dErr.Code)
	default:
		return http.StatusInternalServerError, string(dErr.Code)
	}
}
