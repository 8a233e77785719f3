package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/internal/store"
)

const healthPingTimeout = 2 * time.Second

type HealthHandlerParams struct {
	fx.In

	Pool store.Pool `optional:"true"`
	Log  *zap.Logger
}

func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		pool: params.Pool,
		log:  params.Log,
	}
}

// HealthHandler reports liveness and whether the store is reachable.
// An unreachable store does not fail the check, since scripts that do
// not use the database keep working.
type HealthHandler struct {
	pool store.Pool
	log  *zap.Logger
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{
		Status: "ok",
		Store:  h.storeStatus(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.log.Debug("failed to write response", zap.Error(err))
	}
}

func (h *HealthHandler) storeStatus(ctx context.Context) string {
	if h.pool == nil {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		h.log.Debug("store unreachable", zap.Error(err))
		return "unreachable"
	}

	return "ok"
}
