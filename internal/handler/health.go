package handler

import (
	"net/http"

	"github.com/gidvion/chat-core/internal/chat"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	session *chat.Session
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(session *chat.Session) *HealthHandler {
	return &HealthHandler{
		session: session,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.session.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "backend unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
