// Package backend defines the contract with the inference/persistence
// backend and its implementations. The core only depends on this
// boundary; everything behind it is external.
package backend

import (
	"context"
	"time"

	"github.com/gidvion/chat-core/internal/model"
)

// SendRequest carries one user submission to the backend.
type SendRequest struct {
	Text             string             `json:"query"`
	Context          string             `json:"context,omitempty"`
	Emotion          string             `json:"emotion,omitempty"`
	Model            string             `json:"model,omitempty"`
	ConversationID   string             `json:"conversation_id"`
	Attachments      []model.Attachment `json:"attachments,omitempty"`
	WebSearchEnabled bool               `json:"web_search_enabled,omitempty"`
}

// SendResponse is the backend's reply to a send.
type SendResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// CreatedConversation is returned when a conversation is created.
type CreatedConversation struct {
	ConversationID string    `json:"conversation_id"`
	RoomName       string    `json:"room_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// QueryRecord is one raw persisted exchange: the user's query and the
// AI's result share a record and a timestamp. Loading a conversation
// expands each record into a user/AI message pair.
type QueryRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Result         string    `json:"result"`
	ModelUsed      string    `json:"model_used,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Client is the backend collaborator contract.
type Client interface {
	// SendMessage submits a user message for inference.
	SendMessage(ctx context.Context, req *SendRequest) (*SendResponse, error)

	// CheckHealth reports whether the backend is reachable.
	CheckHealth(ctx context.Context) bool

	// CurrentUser returns the authenticated user, failing when there
	// is none.
	CurrentUser(ctx context.Context) (*model.User, error)

	// ListConversations returns all known conversations.
	ListConversations(ctx context.Context) ([]model.Conversation, error)

	// CreateConversation creates a conversation with the given display
	// name and default model.
	CreateConversation(ctx context.Context, name, modelID string) (*CreatedConversation, error)

	// DeleteConversation removes a conversation and its history.
	DeleteConversation(ctx context.Context, id string) error

	// ConversationMessages returns the raw query records for a
	// conversation.
	ConversationMessages(ctx context.Context, id string) ([]QueryRecord, error)
}
