// Package registry tracks the set of known conversations and which one
// is active. It holds metadata only; the active conversation's messages
// live in the message store.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gidvion/chat-core/internal/model"
)

// ErrConversationNotFound is returned for lookups of unknown ids.
var ErrConversationNotFound = errors.New("conversation not found")

// Registry is the in-memory conversation set.
type Registry struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	activeID      string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conversations: make(map[string]*model.Conversation),
	}
}

// Add inserts or replaces a conversation.
func (r *Registry) Add(conv model.Conversation) {
	r.mu.Lock()
	r.conversations[conv.ID] = &conv
	r.mu.Unlock()
}

// ReplaceAll installs the given conversations as the full set, keeping
// the active id when it survives the reload.
func (r *Registry) ReplaceAll(convs []model.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations = make(map[string]*model.Conversation, len(convs))
	for i := range convs {
		c := convs[i]
		r.conversations[c.ID] = &c
	}
	if _, ok := r.conversations[r.activeID]; !ok {
		r.activeID = ""
	}
}

// Get returns a conversation by id.
func (r *Registry) Get(id string) (model.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return model.Conversation{}, false
	}
	return *c, true
}

// List returns all conversations, most recent activity first.
func (r *Registry) List() []model.Conversation {
	r.mu.RLock()
	out := make([]model.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out = append(out, *c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

// Len returns the number of conversations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}

// SetActive marks a conversation as the active one.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return ErrConversationNotFound
	}
	r.activeID = id
	return nil
}

// ActiveID returns the active conversation id, or "" when none is set.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Active returns the active conversation.
func (r *Registry) Active() (model.Conversation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[r.activeID]
	if !ok {
		return model.Conversation{}, false
	}
	return *c, true
}

// Touch records last-message bookkeeping after a store append.
func (r *Registry) Touch(id, preview string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return
	}
	c.LastMessage = preview
	c.LastMessageAt = at
}

// Remove deletes a conversation. Removing the active conversation
// clears the active id; callers are expected to have selected or
// created a replacement first.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return false
	}
	delete(r.conversations, id)
	if r.activeID == id {
		r.activeID = ""
	}
	return true
}

// MostRecentOther returns the most recently active conversation that is
// not excludeID, used to promote a replacement when deleting the active
// conversation.
func (r *Registry) MostRecentOther(excludeID string) (model.Conversation, bool) {
	for _, c := range r.List() {
		if c.ID != excludeID {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// Bucket labels, newest first.
const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketThisWeek  = "This Week"
	BucketOlder     = "Older"
)

// Buckets groups conversations by recency of last activity relative to
// now. The grouping is a derived view computed at render time, never a
// stored property.
func (r *Registry) Buckets(now time.Time) []model.ConversationBucket {
	return bucketize(r.List(), now)
}

// Search filters conversations by a case-insensitive query over name,
// last-message preview and model, plus an optional exact model filter,
// and returns the bucketed result. It does not mutate the registry.
func (r *Registry) Search(query, modelFilter string, now time.Time) []model.ConversationBucket {
	q := strings.ToLower(query)
	var matched []model.Conversation
	for _, c := range r.List() {
		if modelFilter != "" && modelFilter != "all" && c.AIModel != modelFilter {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.RoomName), q) &&
			!strings.Contains(strings.ToLower(c.LastMessage), q) &&
			!strings.Contains(strings.ToLower(c.AIModel), q) {
			continue
		}
		matched = append(matched, c)
	}
	return bucketize(matched, now)
}

func bucketize(convs []model.Conversation, now time.Time) []model.ConversationBucket {
	groups := map[string][]model.Conversation{}
	for _, c := range convs {
		label := bucketLabel(c.LastMessageAt, now)
		groups[label] = append(groups[label], c)
	}

	var out []model.ConversationBucket
	for _, label := range []string{BucketToday, BucketYesterday, BucketThisWeek, BucketOlder} {
		if convs, ok := groups[label]; ok {
			out = append(out, model.ConversationBucket{Label: label, Conversations: convs})
		}
	}
	return out
}

func bucketLabel(at, now time.Time) string {
	day := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
	switch {
	case day(at).Equal(day(now)):
		return BucketToday
	case day(at).Equal(day(now.AddDate(0, 0, -1))):
		return BucketYesterday
	case at.After(now.AddDate(0, 0, -7)):
		return BucketThisWeek
	default:
		return BucketOlder
	}
}
