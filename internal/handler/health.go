package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves liveness endpoints.
type HealthHandler struct {
	provider string
}

// NewHealthHandler creates a new HealthHandler reporting the active provider.
func NewHealthHandler(provider string) *HealthHandler {
	return &HealthHandler{provider: provider}
}

// HandleHealth handles GET /api/health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"provider":  h.provider,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandlePing handles GET /api/ping requests.
func (h *HealthHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
