// Package chat wires the message store, conversation registry, backend
// client and durable cache into one session controller. The session is
// the single entry point for everything the rendering layer does.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gidvion/chat-core/internal/backend"
	"github.com/gidvion/chat-core/internal/events"
	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/internal/registry"
	"github.com/gidvion/chat-core/internal/store"
	"github.com/gidvion/chat-core/internal/tree"
	"github.com/gidvion/chat-core/pkg/logger"
	"github.com/gidvion/chat-core/pkg/metrics"
)

var (
	// ErrEmptyMessage is returned for a send with no content and no
	// attachments.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotAuthenticated is returned when no user identity is loaded.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBackendUnhealthy is returned when the last health check failed.
	ErrBackendUnhealthy = errors.New("backend unavailable")

	// ErrNoActiveConversation is returned when nothing is selected.
	ErrNoActiveConversation = errors.New("no active conversation")

	// ErrMessageNotFound is returned by Retry for unknown message ids.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotRetryable is returned by Retry for messages that have not
	// failed.
	ErrNotRetryable = errors.New("message is not in an error state")
)

const (
	// contextWindow is how many trailing messages are replayed to the
	// backend as conversational context.
	contextWindow = 10

	defaultSentDelay      = 500 * time.Millisecond
	defaultHealthInterval = 30 * time.Second
)

// Persister is the durable cache contract the session writes through.
type Persister interface {
	SaveMessages(msgs []model.Message) error
	LoadMessages() []model.Message
	SaveSelectedModel(id string) error
	LoadSelectedModel() string
}

// Options tunes session timing. Zero values select the defaults.
type Options struct {
	// SentDelay is the pause before a sending message is marked sent.
	SentDelay time.Duration

	// HealthInterval is the backend health poll period.
	HealthInterval time.Duration
}

// Session owns the live conversational state for one user.
type Session struct {
	store    *store.Store
	registry *registry.Registry
	backend  backend.Client
	cache    Persister
	mirror   *events.Mirror
	logger   *logger.Logger

	sentDelay      time.Duration
	healthInterval time.Duration

	mu            sync.RWMutex
	user          *model.User
	selectedModel string
	typing        bool
	healthy       bool

	snapshotCh chan struct{}
	done       chan struct{}
	bg         sync.WaitGroup
	closeOnce  sync.Once
}

// New assembles a session. cache and mirror may be nil; the session then
// runs without persistence or event mirroring.
func New(st *store.Store, reg *registry.Registry, be backend.Client, cache Persister, mirror *events.Mirror, log *logger.Logger, opts Options) *Session {
	if opts.SentDelay <= 0 {
		opts.SentDelay = defaultSentDelay
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = defaultHealthInterval
	}
	if mirror == nil {
		mirror = events.NewMirror(nil)
	}

	s := &Session{
		store:          st,
		registry:       reg,
		backend:        be,
		cache:          cache,
		mirror:         mirror,
		logger:         log,
		sentDelay:      opts.SentDelay,
		healthInterval: opts.HealthInterval,
		selectedModel:  model.DefaultModel,
		snapshotCh:     make(chan struct{}, 1),
		done:           make(chan struct{}),
	}

	// Every store mutation fans out to the durable cache and, when
	// configured, the NATS mirror. The snapshot channel coalesces
	// bursts into single writes.
	st.OnChange(func(evt model.StoreEvent) {
		s.requestSnapshot()
		if s.mirror.Enabled() {
			if err := s.mirror.PublishEvent(context.Background(), &evt); err != nil {
				s.logger.Warn("event mirror publish failed", zap.Error(err))
			}
		}
	})

	return s
}

// Open restores persisted state and synchronizes with the backend. The
// backend being down is not fatal: the cached history still loads and
// health polling will notice when it comes back.
func (s *Session) Open(ctx context.Context) error {
	if s.cache != nil {
		if id := s.cache.LoadSelectedModel(); model.KnownModelID(id) {
			s.mu.Lock()
			s.selectedModel = id
			s.mu.Unlock()
		}
		if cached := s.cache.LoadMessages(); len(cached) > 0 {
			s.store.ReplaceAll(cached)
			s.logger.Info("restored cached history", zap.Int("messages", len(cached)))
		}
	}

	s.setHealthy(s.backend.CheckHealth(ctx))

	if user, err := s.backend.CurrentUser(ctx); err != nil {
		s.logger.Warn("no authenticated user", zap.Error(err))
	} else {
		s.mu.Lock()
		s.user = user
		s.mu.Unlock()
	}

	if err := s.syncConversations(ctx); err != nil {
		s.logger.Warn("conversation sync failed", zap.Error(err))
	}

	s.bg.Add(2)
	go s.snapshotLoop()
	go s.healthLoop()

	return nil
}

// syncConversations reloads the conversation list and makes sure
// something is selected: the most recent conversation wins, and a fresh
// one is created when the list is empty.
func (s *Session) syncConversations(ctx context.Context) error {
	convs, err := s.backend.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	s.registry.ReplaceAll(convs)

	if s.registry.ActiveID() != "" {
		return nil
	}
	if list := s.registry.List(); len(list) > 0 {
		return s.SelectConversation(ctx, list[0].ID)
	}
	_, err = s.CreateConversation(ctx, "Default Chat", s.SelectedModel())
	return err
}

// Close stops background work and flushes a final snapshot.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.bg.Wait()
		s.writeSnapshot()
	})
}

func (s *Session) requestSnapshot() {
	select {
	case s.snapshotCh <- struct{}{}:
	default:
	}
}

func (s *Session) snapshotLoop() {
	defer s.bg.Done()
	for {
		select {
		case <-s.snapshotCh:
			s.writeSnapshot()
		case <-s.done:
			return
		}
	}
}

func (s *Session) writeSnapshot() {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveMessages(s.store.All()); err != nil {
		s.logger.Warn("cache snapshot failed", zap.Error(err))
	}
}

func (s *Session) healthLoop() {
	defer s.bg.Done()
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.setHealthy(s.backend.CheckHealth(ctx))
			cancel()
		case <-s.done:
			return
		}
	}
}

func (s *Session) setHealthy(healthy bool) {
	s.mu.Lock()
	changed := s.healthy != healthy
	s.healthy = healthy
	s.mu.Unlock()

	metrics.SetBackendHealthy(healthy)
	if changed {
		s.logger.Info("backend health changed", zap.Bool("healthy", healthy))
	}
}

// mirrorMessage forwards a full message to the event mirror.
func (s *Session) mirrorMessage(msg *model.Message) {
	if !s.mirror.Enabled() {
		return
	}
	if err := s.mirror.PublishMessage(context.Background(), msg); err != nil {
		s.logger.Warn("message mirror publish failed", zap.Error(err))
	}
}

// Healthy reports the last backend health check result.
func (s *Session) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// Typing reports whether an AI reply is pending.
func (s *Session) Typing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}

func (s *Session) setTyping(v bool) {
	s.mu.Lock()
	s.typing = v
	s.mu.Unlock()
}

// User returns the authenticated user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SelectedModel returns the model the picker currently has chosen.
func (s *Session) SelectedModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedModel
}

// SetSelectedModel changes the picker choice and persists it. Unknown
// model ids are rejected.
func (s *Session) SetSelectedModel(id string) error {
	if !model.KnownModelID(id) {
		return fmt.Errorf("unknown model %q", id)
	}
	s.mu.Lock()
	s.selectedModel = id
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SaveSelectedModel(id); err != nil {
			s.logger.Warn("failed to persist selected model", zap.Error(err))
		}
	}
	return nil
}

// Messages returns the active conversation's messages in order.
func (s *Session) Messages() []model.Message {
	return s.store.All()
}

// Tree returns the active conversation rendered as a reply tree.
func (s *Session) Tree() []model.TreeNode {
	start := time.Now()
	nodes := tree.Build(s.store.All())
	metrics.TreeRebuildDuration.Observe(time.Since(start).Seconds())
	return nodes
}

// Buckets returns the conversation list grouped by recency.
func (s *Session) Buckets() []model.ConversationBucket {
	return s.registry.Buckets(time.Now())
}

// SearchConversations filters the conversation list.
func (s *Session) SearchConversations(query, modelFilter string) []model.ConversationBucket {
	return s.registry.Search(query, modelFilter, time.Now())
}

// ActiveConversation returns the selected conversation.
func (s *Session) ActiveConversation() (model.Conversation, bool) {
	return s.registry.Active()
}

// Conversations returns all conversations, most recent first.
func (s *Session) Conversations() []model.Conversation {
	return s.registry.List()
}

// OnEvent registers a listener for store change events and returns an
// unsubscribe func the caller must invoke on teardown.
func (s *Session) OnEvent(fn store.Listener) func() {
	return s.store.OnChange(fn)
}

// ToggleReaction flips a reaction on a message.
func (s *Session) ToggleReaction(messageID string, kind model.ReactionKind) bool {
	return s.store.ToggleReaction(messageID, kind)
}

// SelectConversation makes id active and replaces the store contents
// with that conversation's persisted history. Each raw query record
// expands into a user/AI message pair sharing the record's timestamp.
func (s *Session) SelectConversation(ctx context.Context, id string) error {
	if err := s.registry.SetActive(id); err != nil {
		return err
	}

	records, err := s.backend.ConversationMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", id, err)
	}

	msgs := make([]model.Message, 0, len(records)*2)
	for _, rec := range records {
		msgs = append(msgs, model.Message{
			ID:             "q-" + rec.ID,
			ConversationID: id,
			Sender:         model.SenderUser,
			Content:        rec.Query,
			Timestamp:      rec.CreatedAt,
			Status:         model.StatusRead,
		})
		msgs = append(msgs, model.Message{
			ID:             rec.ID,
			ConversationID: id,
			Sender:         model.SenderAI,
			Content:        rec.Result,
			Model:          rec.ModelUsed,
			Timestamp:      rec.CreatedAt,
			Status:         model.StatusRead,
		})
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	s.store.ReplaceAll(msgs)
	s.logger.WithConversation(id).Info("conversation selected", zap.Int("messages", len(msgs)))
	return nil
}

// CreateConversation creates a conversation on the backend, registers it
// and makes it active with an empty history.
func (s *Session) CreateConversation(ctx context.Context, name, modelID string) (model.Conversation, error) {
	if modelID == "" {
		modelID = s.SelectedModel()
	}

	created, err := s.backend.CreateConversation(ctx, name, modelID)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	conv := model.Conversation{
		ID:            created.ConversationID,
		RoomName:      created.RoomName,
		AIModel:       modelID,
		AIEnabled:     true,
		CreatedAt:     created.CreatedAt,
		LastMessageAt: created.CreatedAt,
	}
	s.registry.Add(conv)
	if err := s.registry.SetActive(conv.ID); err != nil {
		return model.Conversation{}, err
	}
	s.store.ReplaceAll(nil)

	metrics.ConversationsTotal.Inc()
	s.logger.WithConversation(conv.ID).Info("conversation created", zap.String("name", conv.RoomName))
	return conv, nil
}

// DeleteConversation removes a conversation. Deleting the active one
// first hands focus to the most recent survivor, or to a freshly
// created conversation when nothing else exists, so there is never a
// moment without a selection.
func (s *Session) DeleteConversation(ctx context.Context, id string) error {
	if _, ok := s.registry.Get(id); !ok {
		return registry.ErrConversationNotFound
	}

	if s.registry.ActiveID() == id {
		if next, ok := s.registry.MostRecentOther(id); ok {
			if err := s.SelectConversation(ctx, next.ID); err != nil {
				return err
			}
		} else {
			name := fmt.Sprintf("New Chat %s", time.Now().Format("2006-01-02 15:04:05"))
			if _, err := s.CreateConversation(ctx, name, s.SelectedModel()); err != nil {
				return err
			}
		}
	}

	if err := s.backend.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.registry.Remove(id)
	s.logger.WithConversation(id).Info("conversation deleted")
	return nil
}
