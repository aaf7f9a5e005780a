package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/haat/internal/handler"
	"github.com/dukerupert/haat/internal/middleware"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports 200 when the database answers within two seconds and
// 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		middleware.GetLogger(r.Context()).Error("health check failed", "error", err)
		handler.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Database: "unreachable"})
		return
	}
	handler.JSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}
