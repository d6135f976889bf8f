package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gidvion/chat-core/internal/chat"
	"github.com/gidvion/chat-core/internal/middleware"
	"github.com/gidvion/chat-core/internal/model"
)

// SessionHandler serves the session-level view: the full render
// snapshot, the model picker and the authenticated user.
type SessionHandler struct {
	session *chat.Session
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(session *chat.Session) *SessionHandler {
	return &SessionHandler{session: session}
}

// snapshotResponse is everything a rendering layer needs in one call.
type snapshotResponse struct {
	Messages       []model.Message            `json:"messages"`
	Tree           []model.TreeNode           `json:"tree"`
	Buckets        []model.ConversationBucket `json:"buckets"`
	ActiveID       string                     `json:"active_id"`
	SelectedModel  string                     `json:"selected_model"`
	Typing         bool                       `json:"typing"`
	BackendHealthy bool                       `json:"backend_healthy"`
	User           *model.User                `json:"user,omitempty"`
}

// Snapshot handles GET /api/v1/session
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	activeID := ""
	if active, ok := h.session.ActiveConversation(); ok {
		activeID = active.ID
	}

	writeJSON(w, http.StatusOK, &snapshotResponse{
		Messages:       h.session.Messages(),
		Tree:           h.session.Tree(),
		Buckets:        h.session.Buckets(),
		ActiveID:       activeID,
		SelectedModel:  h.session.SelectedModel(),
		Typing:         h.session.Typing(),
		BackendHealthy: h.session.Healthy(),
		User:           h.session.User(),
	})
}

// Models handles GET /api/v1/models
func (h *SessionHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":   model.Catalog,
		"selected": h.session.SelectedModel(),
	})
}

// SelectModel handles PUT /api/v1/models/selected
func (h *SessionHandler) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateModelID(req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.SetSelectedModel(req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"selected": req.Model})
}
