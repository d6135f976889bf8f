package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gidvion/chat-core/internal/llm"
	"github.com/gidvion/chat-core/internal/model"
)

// Local serves the backend contract in-process: conversations live in
// memory and inference is delegated to an LLM provider. It lets the
// binary run against nothing but an API key, and doubles as the test
// double seam.
type Local struct {
	llmClient llm.Client
	user      model.User

	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	records       map[string][]QueryRecord
}

// NewLocal creates a local backend around the given provider.
func NewLocal(llmClient llm.Client, user model.User) *Local {
	return &Local{
		llmClient:     llmClient,
		user:          user,
		conversations: make(map[string]*model.Conversation),
		records:       make(map[string][]QueryRecord),
	}
}

// SendMessage runs inference through the LLM provider and records the
// exchange so ConversationMessages can replay it later.
func (l *Local) SendMessage(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	if l.llmClient == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	messages := []llm.ChatMessage{}
	if req.Context != "" {
		messages = append(messages, llm.ChatMessage{
			Role:    "user",
			Content: "Prior conversation:\n" + req.Context,
		})
	}
	content := req.Text
	if req.Emotion != "" {
		content = fmt.Sprintf("[feeling %s] %s", req.Emotion, content)
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: content})

	resp, err := l.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:    providerModel(l.llmClient, req.Model),
		Messages: messages,
	})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.records[req.ConversationID] = append(l.records[req.ConversationID], QueryRecord{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: req.ConversationID,
		Query:          req.Text,
		Result:         resp.Content,
		ModelUsed:      resp.Model,
		CreatedAt:      time.Now(),
	})
	l.mu.Unlock()

	return &SendResponse{Response: resp.Content, Model: resp.Model}, nil
}

// providerModel maps the picker's model id onto something the provider
// serves; unknown ids fall back to the provider default.
func providerModel(c llm.Client, requested string) string {
	for _, m := range c.Models() {
		if m == requested {
			return requested
		}
	}
	return ""
}

// CheckHealth reports whether a provider is configured.
func (l *Local) CheckHealth(ctx context.Context) bool {
	return l.llmClient != nil
}

// CurrentUser returns the configured local user.
func (l *Local) CurrentUser(ctx context.Context) (*model.User, error) {
	if l.user.ID == "" {
		return nil, fmt.Errorf("not authenticated")
	}
	u := l.user
	return &u, nil
}

// ListConversations returns all conversations, unordered.
func (l *Local) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Conversation, 0, len(l.conversations))
	for _, c := range l.conversations {
		out = append(out, *c)
	}
	return out, nil
}

// CreateConversation creates an in-memory conversation.
func (l *Local) CreateConversation(ctx context.Context, name, modelID string) (*CreatedConversation, error) {
	now := time.Now()
	conv := &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		RoomName:      name,
		AIModel:       modelID,
		Type:          "ai",
		AIEnabled:     true,
		CreatedAt:     now,
		LastMessageAt: now,
	}

	l.mu.Lock()
	l.conversations[conv.ID] = conv
	l.mu.Unlock()

	return &CreatedConversation{
		ConversationID: conv.ID,
		RoomName:       conv.RoomName,
		CreatedAt:      now,
	}, nil
}

// DeleteConversation removes a conversation and its records.
func (l *Local) DeleteConversation(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.conversations[id]; !ok {
		return fmt.Errorf("conversation not found: %s", id)
	}
	delete(l.conversations, id)
	delete(l.records, id)
	return nil
}

// ConversationMessages returns the recorded exchanges for a conversation.
func (l *Local) ConversationMessages(ctx context.Context, id string) ([]QueryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	records := l.records[id]
	out := make([]QueryRecord, len(records))
	copy(out, records)
	return out, nil
}
