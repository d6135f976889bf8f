package model

import (
	"time"
)

// EventType classifies a store lifecycle event.
type EventType string

const (
	EventTypeMessageCreated       EventType = "message_created"
	EventTypeStatusChanged        EventType = "status_changed"
	EventTypeMessageError         EventType = "message_error"
	EventTypeConversationCreated  EventType = "conversation_created"
	EventTypeConversationDeleted  EventType = "conversation_deleted"
	EventTypeConversationSelected EventType = "conversation_selected"
)

// StoreEvent mirrors a message-store change. Events feed the SSE stream
// and, when configured, the NATS event mirror.
type StoreEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Type           EventType `json:"type"`
	MessageID      string    `json:"message_id,omitempty"`
	Status         Status    `json:"status,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HeartbeatEvent keeps SSE connections alive between store changes.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent reports a failure to clients, both on the event stream and
// as the REST error body.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
