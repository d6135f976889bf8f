// Package handler provides HTTP handlers for the API.
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
	"github.com/gidvion/chat-core/internal/registry"
	"github.com/gidvion/chat-core/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	session *chat.Session
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(session *chat.Session, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		session: session,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations
// Supports ?q= and ?model= for filtering the bucketed list.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	modelFilter := r.URL.Query().Get("model")

	var buckets []model.ConversationBucket
	if query != "" || modelFilter != "" {
		buckets = h.session.SearchConversations(query, modelFilter)
	} else {
		buckets = h.session.Buckets()
	}

	total := 0
	for _, b := range buckets {
		total += len(b.Conversations)
	}

	activeID := ""
	if active, ok := h.session.ActiveConversation(); ok {
		activeID = active.ID
	}

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Buckets:  buckets,
		Total:    total,
		ActiveID: activeID,
	})
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTitle(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Model != "" {
		if err := middleware.ValidateModelID(req.Model); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	conv, err := h.session.CreateConversation(r.Context(), req.Name, req.Model)
	if err != nil {
		h.logger.Error("failed to create conversation", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// Select handles POST /api/v1/conversations/{id}/select
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.SelectConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, registry.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to select conversation", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load conversation history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"active_id": conversationID})
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.DeleteConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, registry.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to delete conversation", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/v1/conversations/active/export?format=md
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = chat.ExportMarkdown
	}

	name, data, err := h.session.ExportConversation(format)
	if err != nil {
		if errors.Is(err, chat.ErrNoActiveConversation) {
			writeError(w, http.StatusNotFound, "no active conversation")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
