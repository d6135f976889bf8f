// Package store holds the canonical ordered message list for the active
// conversation and owns status transitions and reaction state.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gidvion/chat-core/internal/model"
)

// ErrDuplicateID is returned when appending a message whose id is
// already present.
var ErrDuplicateID = errors.New("duplicate message id")

// Listener receives store change events after each mutation.
type Listener func(model.StoreEvent)

// Store is the in-memory message list for the active conversation.
// Appends preserve call order; lookups go through an id index.
type Store struct {
	mu       sync.RWMutex
	messages []model.Message
	index    map[string]int

	listenerMu     sync.RWMutex
	listeners      map[int]Listener
	nextListenerID int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		index:     make(map[string]int),
		listeners: make(map[int]Listener),
	}
}

// OnChange registers a listener invoked after every mutation and
// returns an unsubscribe func. Short-lived subscribers (an SSE
// connection, a test) must call it on teardown or their listener stays
// registered for the life of the store. Listeners run outside the store
// lock, so they may call back into the store.
func (s *Store) OnChange(fn Listener) func() {
	s.listenerMu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify(evt model.StoreEvent) {
	evt.ID = uuid.Must(uuid.NewV7()).String()
	evt.CreatedAt = time.Now()

	s.listenerMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(evt)
	}
}

// Append adds a message to the end of the list. Message ids are unique;
// appending an existing id fails without mutating the store.
func (s *Store) Append(msg model.Message) error {
	s.mu.Lock()
	if _, exists := s.index[msg.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, msg.ID)
	}
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	evtType := model.EventTypeMessageCreated
	if msg.Status == model.StatusError {
		evtType = model.EventTypeMessageError
	}
	s.notify(model.StoreEvent{
		ConversationID: msg.ConversationID,
		Type:           evtType,
		MessageID:      msg.ID,
		Status:         msg.Status,
		Reason:         msg.Error,
	})
	return nil
}

// UpdateStatus transitions a message to the given status. The update is
// a no-op (returns false) when the id is unknown or when the message
// already sits in a terminal status, so late timers cannot rewind
// finished messages. errDetail is recorded for StatusError and cleared
// otherwise.
func (s *Store) UpdateStatus(id string, status model.Status, errDetail string) bool {
	if !status.Valid() {
		return false
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok || s.messages[i].Status.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.messages[i].Status = status
	if status == model.StatusError {
		s.messages[i].Error = errDetail
	} else {
		s.messages[i].Error = ""
	}
	convID := s.messages[i].ConversationID
	s.mu.Unlock()

	evtType := model.EventTypeStatusChanged
	if status == model.StatusError {
		evtType = model.EventTypeMessageError
	}
	s.notify(model.StoreEvent{
		ConversationID: convID,
		Type:           evtType,
		MessageID:      id,
		Status:         status,
		Reason:         errDetail,
	})
	return true
}

// ToggleReaction flips one reaction on a message. Setting a reaction
// always forces the opposite one off in the same update, so the pair
// stays mutually exclusive. Unknown ids are no-ops.
func (s *Store) ToggleReaction(id string, kind model.ReactionKind) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	r := &s.messages[i].Reactions
	switch kind {
	case model.ReactionThumbsUp:
		r.ThumbsUp = !r.ThumbsUp
		r.ThumbsDown = false
	case model.ReactionThumbsDown:
		r.ThumbsDown = !r.ThumbsDown
		r.ThumbsUp = false
	default:
		s.mu.Unlock()
		return false
	}
	convID := s.messages[i].ConversationID
	s.mu.Unlock()

	s.notify(model.StoreEvent{
		ConversationID: convID,
		Type:           model.EventTypeStatusChanged,
		MessageID:      id,
	})
	return true
}

// ReplaceAll discards the current contents and installs msgs as the new
// list. Used on conversation switch and cache load; there is no partial
// merge and no cross-conversation memory.
func (s *Store) ReplaceAll(msgs []model.Message) {
	s.mu.Lock()
	s.messages = make([]model.Message, len(msgs))
	copy(s.messages, msgs)
	s.index = make(map[string]int, len(msgs))
	for i, m := range s.messages {
		s.index[m.ID] = i
	}
	var convID string
	if len(s.messages) > 0 {
		convID = s.messages[len(s.messages)-1].ConversationID
	}
	s.mu.Unlock()

	s.notify(model.StoreEvent{
		ConversationID: convID,
		Type:           model.EventTypeConversationSelected,
	})
}

// All returns a copy of the message list in insertion order.
func (s *Store) All() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Get returns a message by id.
func (s *Store) Get(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Message{}, false
	}
	return s.messages[i], true
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recently appended message.
func (s *Store) Last() (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return model.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
