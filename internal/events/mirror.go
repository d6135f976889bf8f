package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gidvion/chat-core/internal/model"
)

const (
	// StreamName is the name of the chat events stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all chat subjects.
	SubjectPrefix = "chat"
)

// Mirror publishes store lifecycle events to JetStream. A Mirror built
// around a nil client is disabled and publishes nothing.
type Mirror struct {
	client *Client
}

// NewMirror creates a mirror. Pass nil to disable publishing.
func NewMirror(client *Client) *Mirror {
	return &Mirror{client: client}
}

// Enabled reports whether events will actually be published.
func (m *Mirror) Enabled() bool {
	return m.client != nil
}

// EnsureStream ensures the chat events stream exists.
func (m *Mirror) EnsureStream(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat message and conversation lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a message.
func MessageSubject(conversationID string, sender model.Sender) string {
	return fmt.Sprintf("%s.%s.msg.%s", SubjectPrefix, conversationID, sender)
}

// EventSubject returns the subject for a lifecycle event.
func EventSubject(conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, conversationID, eventType)
}

// PublishMessage publishes a full message to JetStream.
func (m *Mirror) PublishMessage(ctx context.Context, msg *model.Message) error {
	if !m.Enabled() {
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	subject := MessageSubject(msg.ConversationID, msg.Sender)
	if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishEvent publishes a store lifecycle event to JetStream. Events
// with no conversation id (selecting an empty history) have no valid
// subject and are skipped.
func (m *Mirror) PublishEvent(ctx context.Context, evt *model.StoreEvent) error {
	if !m.Enabled() || evt.ConversationID == "" {
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := EventSubject(evt.ConversationID, evt.Type)
	if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
