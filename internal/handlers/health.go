package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"carrental-prototype/internal/worker"
)

type HealthHandler struct {
	pool *worker.WorkerPool
}

func NewHealthHandler(pool *worker.WorkerPool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Health обрабатывает GET /health — статус сервиса и пула воркеров
func (h *HealthHandler) Health(ctx *fasthttp.RequestCtx) {
	response := map[string]interface{}{
		"status":  "ok",
		"message": "Car rental prototype is running!",
		"time":    time.Now().Format(time.RFC3339),
	}
	if h.pool != nil {
		response["worker_pool"] = h.pool.GetStats()
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(response)
}
