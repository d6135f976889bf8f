package model

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Status is the delivery state of a message.
//
// User messages walk sending -> sent -> delivered -> read, or drop into
// error from any non-terminal state. read and error are terminal.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions may leave this status.
func (s Status) Terminal() bool {
	return s == StatusRead || s == StatusError
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusRead, StatusError:
		return true
	}
	return false
}

// ReactionKind selects one of the two message reactions.
type ReactionKind string

const (
	ReactionThumbsUp   ReactionKind = "thumbsUp"
	ReactionThumbsDown ReactionKind = "thumbsDown"
)

// Reactions holds the thumbs pair. At most one is true at any time; the
// store enforces exclusivity on toggle.
type Reactions struct {
	ThumbsUp   bool `json:"thumbsUp"`
	ThumbsDown bool `json:"thumbsDown"`
}

// Attachment is an opaque file reference carried on a user message.
type Attachment struct {
	Name        string `json:"name"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Message is one turn in a conversation.
type Message struct {
	// Identity
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// Content
	Sender      Sender       `json:"sender"`
	Content     string       `json:"content"`
	Model       string       `json:"model,omitempty"`
	Emotion     string       `json:"emotion,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// State
	Timestamp time.Time `json:"timestamp"`
	Reactions Reactions `json:"reactions"`
	Status    Status    `json:"status"`

	// Error holds the failure detail. Set if and only if Status == StatusError.
	Error string `json:"error,omitempty"`

	// ParentMessageID links a branched reply to its parent. Empty for
	// root-level messages, which is the common linear-history case.
	ParentMessageID string `json:"parent_message_id,omitempty"`
}

// NewUserMessage creates a pending user message. UUIDv7 ids are
// time-ordered, so creation order survives lexicographic ties.
func NewUserMessage(conversationID, content string) *Message {
	return &Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Sender:         SenderUser,
		Content:        content,
		Timestamp:      time.Now(),
		Status:         StatusSending,
	}
}

// NewAIMessage creates a completed AI reply.
func NewAIMessage(conversationID, content, modelName string) *Message {
	return &Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Sender:         SenderAI,
		Content:        content,
		Model:          modelName,
		Timestamp:      time.Now(),
		Status:         StatusRead,
	}
}

// SendMessageRequest is the payload for submitting a new user message.
type SendMessageRequest struct {
	Content          string       `json:"content"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Emotion          string       `json:"emotion,omitempty"`
	Model            string       `json:"model,omitempty"`
	WebSearchEnabled bool         `json:"web_search_enabled,omitempty"`
}

// SendMessageResponse acknowledges an accepted send.
type SendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// User is the authenticated user context required to send messages.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
