package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/internal/infrastructure/monitor"
	"github.com/fastygo/blogclient/pkg/httpcontext"
)

// StatusSource reports the latest connectivity snapshot.
type StatusSource interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"last_check": status.LastCheck.UTC(),
		"services": map[string]interface{}{
			"api": map[string]interface{}{
				"online":     status.API,
				"latency_ms": status.APILatency.Milliseconds(),
			},
			"storage": map[string]interface{}{
				"online": status.Storage,
				"driver": status.StorageDriver,
			},
		},
		"authenticated": status.Authenticated,
	}

	if status.API && status.Storage {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, NewError("DEGRADED", "dependencies unhealthy", payload))
}
