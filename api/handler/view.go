package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/pkg/httpcontext"
	"github.com/fastygo/blogclient/usecase"
)

// ViewHandler answers page routes with their JSON view-model.
type ViewHandler struct {
	baseHandler
	dispatcher *usecase.Dispatcher
}

func NewViewHandler(dispatcher *usecase.Dispatcher, adapter *httpcontext.Adapter, logger *zap.Logger) *ViewHandler {
	return &ViewHandler{
		baseHandler: newBaseHandler(adapter, logger),
		dispatcher:  dispatcher,
	}
}

// Serve returns the handler of the named view. Query arguments and the {id}
// route parameter become view parameters.
func (h *ViewHandler) Serve(name string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		stdCtx, cancel := h.requestContext(ctx)
		defer cancel()

		params := usecase.Params{}
		ctx.QueryArgs().VisitAll(func(k, v []byte) {
			params[string(k)] = string(v)
		})
		if id, ok := ctx.UserValue("id").(string); ok {
			params["id"] = id
		}

		model, err := h.dispatcher.ExecuteQuery(stdCtx, name, params)
		if err != nil {
			h.logger.Warn("view failed", zap.String("view", name), zap.Error(err))
			h.respondError(ctx, err)
			return
		}
		h.respondSuccess(ctx, http.StatusOK, model)
	}
}

// NotFound is the catch-all route.
func (h *ViewHandler) NotFound(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusNotFound, NewError(string(domain.ErrCodeNotFound), "页面不存在", map[string]string{
		"path": string(ctx.Path()),
	}))
}
