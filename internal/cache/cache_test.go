package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/pkg/logger"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMessagesRoundTrip(t *testing.T) {
	c := openTestCache(t)

	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	msgs := []model.Message{
		{
			ID:             "m1",
			ConversationID: "conv-1",
			Sender:         model.SenderUser,
			Content:        "hello",
			Timestamp:      ts,
			Status:         model.StatusRead,
			Reactions:      model.Reactions{ThumbsUp: true},
			Emotion:        "curious",
		},
		{
			ID:             "m2",
			ConversationID: "conv-1",
			Sender:         model.SenderAI,
			Content:        "hi there",
			Model:          "gemini-2.5-pro",
			Timestamp:      ts.Add(time.Second),
			Status:         model.StatusError,
			Error:          "timeout",
		},
	}

	require.NoError(t, c.SaveMessages(msgs))
	got := c.LoadMessages()

	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "hello", got[0].Content)
	assert.Equal(t, model.SenderUser, got[0].Sender)
	assert.Equal(t, model.StatusRead, got[0].Status)
	assert.True(t, got[0].Reactions.ThumbsUp)
	assert.True(t, got[0].Timestamp.Equal(ts), "timestamp must reconstruct to the same instant")
	assert.Equal(t, "timeout", got[1].Error)
	assert.True(t, got[1].Timestamp.Equal(ts.Add(time.Second)))
}

func TestSaveOverwritesPriorSnapshot(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.SaveMessages([]model.Message{{ID: "old", Timestamp: time.Now()}}))
	require.NoError(t, c.SaveMessages([]model.Message{{ID: "new", Timestamp: time.Now()}}))

	got := c.LoadMessages()
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestLoadEmptyCache(t *testing.T) {
	c := openTestCache(t)
	assert.Empty(t, c.LoadMessages())
	assert.Empty(t, c.LoadSelectedModel())
}

func TestLoadMalformedPayloadRecovers(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.put(keyMessages, []byte("{definitely not json")))

	// Never an error, never a crash: malformed cache means no history.
	assert.Empty(t, c.LoadMessages())
}

func TestSelectedModelRoundTrip(t *testing.T) {
	c := openTestCache(t)

	require.NoError(t, c.SaveSelectedModel("claude-4.0-sonnet"))
	assert.Equal(t, "claude-4.0-sonnet", c.LoadSelectedModel())

	require.NoError(t, c.SaveSelectedModel("gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash", c.LoadSelectedModel())
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	c, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.SaveMessages([]model.Message{{ID: "m1", Content: "persisted", Timestamp: time.Now()}}))
	require.NoError(t, c.SaveSelectedModel("gemini-2.5-pro"))
	require.NoError(t, c.Close())

	c2, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer c2.Close()

	got := c2.LoadMessages()
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Content)
	assert.Equal(t, "gemini-2.5-pro", c2.LoadSelectedModel())
}
