// Package model defines data structures for the chat session core.
package model

import (
	"time"
)

// Conversation is the metadata for one independent message history.
// Messages themselves live in the store only while the conversation
// is active; switching conversations swaps the store contents.
type Conversation struct {
	ID            string    `json:"id"`
	RoomName      string    `json:"room_name"`
	LastMessageAt time.Time `json:"last_message_at"`
	LastMessage   string    `json:"last_message,omitempty"`
	AIModel       string    `json:"ai_model"`
	Type          string    `json:"type,omitempty"`
	AIEnabled     bool      `json:"aiEnabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
}

// ListConversationsResponse is the bucketed conversation list served to
// the rendering layer.
type ListConversationsResponse struct {
	Buckets  []ConversationBucket `json:"buckets"`
	Total    int                  `json:"total"`
	ActiveID string               `json:"active_id"`
}

// ConversationBucket groups conversations by recency for display.
type ConversationBucket struct {
	Label         string         `json:"label"`
	Conversations []Conversation `json:"conversations"`
}
