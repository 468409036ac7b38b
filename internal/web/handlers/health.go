package handlers

import (
	"context"
	"net/http"
	"time"
)

const (
	healthStatusHealthy = "healthy"
	healthStatusOK      = "ok"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthzHandler handles liveness probes (/healthz)
func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
}

// readyzHandler handles readiness probes (/readyz)
// Checks the file root and every configured backend
func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true
	for name, err := range h.gallery.Health(ctx) {
		if err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
			continue
		}
		checks[name] = healthStatusHealthy
	}

	if !allHealthy {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
}
