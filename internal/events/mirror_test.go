package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidvion/chat-core/internal/model"
)

func TestMirrorDisabledWithoutClient(t *testing.T) {
	m := NewMirror(nil)
	assert.False(t, m.Enabled())

	require.NoError(t, m.EnsureStream(context.Background()))
	require.NoError(t, m.PublishMessage(context.Background(), &model.Message{
		ID:             "m1",
		ConversationID: "conv-1",
	}))
	require.NoError(t, m.PublishEvent(context.Background(), &model.StoreEvent{
		ConversationID: "conv-1",
		Type:           model.EventTypeMessageCreated,
	}))
}

func TestPublishEventSkipsEmptyConversation(t *testing.T) {
	// Selecting an empty history yields an event with no conversation
	// id; such events have no valid subject and must be skipped before
	// any JetStream access.
	m := NewMirror(&Client{})
	require.True(t, m.Enabled())

	err := m.PublishEvent(context.Background(), &model.StoreEvent{
		ID:        "evt-1",
		Type:      model.EventTypeConversationSelected,
		CreatedAt: time.Now(),
	})
	assert.NoError(t, err)
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "chat.conv-1.msg.user", MessageSubject("conv-1", model.SenderUser))
	assert.Equal(t, "chat.conv-1.msg.ai", MessageSubject("conv-1", model.SenderAI))
	assert.Equal(t, "chat.conv-1.event.status_changed", EventSubject("conv-1", model.EventTypeStatusChanged))
}
