package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidvion/chat-core/internal/model"
)

func conv(id, name, aiModel string, lastAt time.Time) model.Conversation {
	return model.Conversation{
		ID:            id,
		RoomName:      name,
		AIModel:       aiModel,
		LastMessageAt: lastAt,
		AIEnabled:     true,
	}
}

func TestListSortsByRecency(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add(conv("old", "Old", "gemini-2.5-pro", now.Add(-48*time.Hour)))
	r.Add(conv("new", "New", "gemini-2.5-pro", now))
	r.Add(conv("mid", "Mid", "gemini-2.5-pro", now.Add(-1*time.Hour)))

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)
	assert.Equal(t, "old", list[2].ID)
}

func TestActiveTracking(t *testing.T) {
	r := New()
	r.Add(conv("a", "A", "gemini-2.5-pro", time.Now()))

	require.Error(t, r.SetActive("ghost"))
	require.NoError(t, r.SetActive("a"))
	assert.Equal(t, "a", r.ActiveID())

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "A", active.RoomName)
}

func TestRemoveActiveClearsActiveID(t *testing.T) {
	r := New()
	r.Add(conv("a", "A", "gemini-2.5-pro", time.Now()))
	require.NoError(t, r.SetActive("a"))

	require.True(t, r.Remove("a"))
	assert.Empty(t, r.ActiveID())
	assert.Equal(t, 0, r.Len())
}

func TestMostRecentOther(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add(conv("a", "A", "gemini-2.5-pro", now))
	r.Add(conv("b", "B", "gemini-2.5-pro", now.Add(-time.Hour)))

	other, ok := r.MostRecentOther("a")
	require.True(t, ok)
	assert.Equal(t, "b", other.ID)

	_, ok = New().MostRecentOther("a")
	assert.False(t, ok)
}

func TestTouchUpdatesPreviewAndTime(t *testing.T) {
	r := New()
	old := time.Now().Add(-time.Hour)
	r.Add(conv("a", "A", "gemini-2.5-pro", old))

	at := time.Now()
	r.Touch("a", "latest message text", at)

	got, _ := r.Get("a")
	assert.Equal(t, "latest message text", got.LastMessage)
	assert.True(t, got.LastMessageAt.Equal(at))
}

func TestBucketsByRecency(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	r := New()
	r.Add(conv("today", "Today chat", "gemini-2.5-pro", now.Add(-2*time.Hour)))
	r.Add(conv("yesterday", "Yesterday chat", "gemini-2.5-pro", now.Add(-24*time.Hour)))
	r.Add(conv("week", "Week chat", "gemini-2.5-pro", now.Add(-4*24*time.Hour)))
	r.Add(conv("older", "Older chat", "gemini-2.5-pro", now.Add(-30*24*time.Hour)))

	buckets := r.Buckets(now)
	require.Len(t, buckets, 4)
	assert.Equal(t, BucketToday, buckets[0].Label)
	assert.Equal(t, "today", buckets[0].Conversations[0].ID)
	assert.Equal(t, BucketYesterday, buckets[1].Label)
	assert.Equal(t, BucketThisWeek, buckets[2].Label)
	assert.Equal(t, BucketOlder, buckets[3].Label)
}

func TestBucketsOmitEmptyGroups(t *testing.T) {
	now := time.Now()
	r := New()
	r.Add(conv("a", "A", "gemini-2.5-pro", now))

	buckets := r.Buckets(now)
	require.Len(t, buckets, 1)
	assert.Equal(t, BucketToday, buckets[0].Label)
}

func TestSearchMatchesNamePreviewAndModel(t *testing.T) {
	now := time.Now()
	r := New()
	c := conv("a", "Project Planning", "gemini-2.5-pro", now)
	c.LastMessage = "let's review the roadmap"
	r.Add(c)
	r.Add(conv("b", "Random", "claude-4.0-sonnet", now))

	found := r.Search("planning", "", now)
	require.Len(t, found, 1)
	require.Len(t, found[0].Conversations, 1)
	assert.Equal(t, "a", found[0].Conversations[0].ID)

	found = r.Search("roadmap", "", now)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].Conversations[0].ID)

	found = r.Search("claude", "", now)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Conversations[0].ID)
}

func TestSearchModelFilter(t *testing.T) {
	now := time.Now()
	r := New()
	r.Add(conv("a", "A", "gemini-2.5-pro", now))
	r.Add(conv("b", "B", "claude-4.0-sonnet", now))

	found := r.Search("", "claude-4.0-sonnet", now)
	require.Len(t, found, 1)
	require.Len(t, found[0].Conversations, 1)
	assert.Equal(t, "b", found[0].Conversations[0].ID)

	// "all" disables the filter, matching the picker's default option.
	found = r.Search("", "all", now)
	require.Len(t, found[0].Conversations, 2)
}

func TestReplaceAllKeepsSurvivingActive(t *testing.T) {
	r := New()
	now := time.Now()
	r.Add(conv("a", "A", "gemini-2.5-pro", now))
	require.NoError(t, r.SetActive("a"))

	r.ReplaceAll([]model.Conversation{conv("a", "A2", "gemini-2.5-pro", now)})
	assert.Equal(t, "a", r.ActiveID())

	r.ReplaceAll([]model.Conversation{conv("b", "B", "gemini-2.5-pro", now)})
	assert.Empty(t, r.ActiveID())
}
