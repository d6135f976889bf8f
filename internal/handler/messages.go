package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gidvion/chat-core/internal/chat"
	"github.com/gidvion/chat-core/internal/middleware"
	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	session *chat.Session
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(session *chat.Session, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		session: session,
		logger:  log,
	}
}

// List handles GET /api/v1/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": h.session.Messages(),
		"typing":   h.session.Typing(),
	})
}

// Tree handles GET /api/v1/messages/tree
func (h *MessageHandler) Tree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tree": h.session.Tree(),
	})
}

// Send handles POST /api/v1/messages
//
// The response acknowledges the optimistic append only; delivery status
// and the AI reply arrive later through the event stream.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Model != "" {
		if err := middleware.ValidateModelID(req.Model); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.session.Send(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chat.ErrNotAuthenticated):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, chat.ErrBackendUnhealthy):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, chat.ErrNoActiveConversation):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("send failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// Retry handles POST /api/v1/messages/{id}/retry
func (h *MessageHandler) Retry(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")
	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.session.Retry(r.Context(), messageID)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "message not found")
		case errors.Is(err, chat.ErrNotRetryable):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, chat.ErrBackendUnhealthy):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// React handles POST /api/v1/messages/{id}/reactions
func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")
	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateReaction(req.Kind); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.session.ToggleReaction(messageID, model.ReactionKind(req.Kind)) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
