package api

import (
	"context"
	"net/http"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// HealthHandler handles liveness requests.
type HealthHandler struct {
	clock Clock
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(clock Clock) *HealthHandler {
	return &HealthHandler{clock: clock}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth handles /health requests.
func (h *HealthHandler) HandleHealth(_ context.Context, _ Request) Response {
	return jsonResponse(http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: h.clock.Now().UTC().Format(time.RFC3339Nano),
	})
}
