package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidvion/chat-core/internal/backend"
	"github.com/gidvion/chat-core/internal/chat"
	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/internal/registry"
	"github.com/gidvion/chat-core/internal/store"
	"github.com/gidvion/chat-core/pkg/logger"
)

// stubBackend answers every backend call with canned data.
type stubBackend struct {
	mu      sync.Mutex
	created int
}

func (s *stubBackend) SendMessage(ctx context.Context, req *backend.SendRequest) (*backend.SendResponse, error) {
	return &backend.SendResponse{Response: "reply to: " + req.Text, Model: req.Model}, nil
}

func (s *stubBackend) CheckHealth(ctx context.Context) bool { return true }

func (s *stubBackend) CurrentUser(ctx context.Context) (*model.User, error) {
	return &model.User{ID: "u1", Username: "tester"}, nil
}

func (s *stubBackend) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	return nil, nil
}

func (s *stubBackend) CreateConversation(ctx context.Context, name, modelID string) (*backend.CreatedConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return &backend.CreatedConversation{
		ConversationID: fmt.Sprintf("conv-%d", s.created),
		RoomName:       name,
		CreatedAt:      time.Now(),
	}, nil
}

func (s *stubBackend) DeleteConversation(ctx context.Context, id string) error { return nil }

func (s *stubBackend) ConversationMessages(ctx context.Context, id string) ([]backend.QueryRecord, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *chat.Session) {
	t.Helper()
	session := chat.New(store.New(), registry.New(), &stubBackend{}, nil, nil, logger.NewNop(), chat.Options{
		SentDelay:      time.Millisecond,
		HealthInterval: time.Hour,
	})
	require.NoError(t, session.Open(context.Background()))
	t.Cleanup(session.Close)

	log := logger.NewNop()
	conversations := NewConversationHandler(session, log)
	messages := NewMessageHandler(session, log)
	sess := NewSessionHandler(session)
	health := NewHealthHandler(session)

	r := chi.NewRouter()
	r.Get("/ready", health.Ready)
	r.Get("/api/v1/session", sess.Snapshot)
	r.Get("/api/v1/models", sess.Models)
	r.Put("/api/v1/models/selected", sess.SelectModel)
	r.Get("/api/v1/conversations", conversations.List)
	r.Post("/api/v1/conversations", conversations.Create)
	r.Get("/api/v1/conversations/active/export", conversations.Export)
	r.Post("/api/v1/conversations/{id}/select", conversations.Select)
	r.Delete("/api/v1/conversations/{id}", conversations.Delete)
	r.Post("/api/v1/messages", messages.Send)
	r.Post("/api/v1/messages/{id}/reactions", messages.React)
	return r, session
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSendEndpoint(t *testing.T) {
	r, session := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content":"hello there"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.MessageID)

	require.Eventually(t, func() bool {
		return len(session.Messages()) == 2
	}, 2*time.Second, 2*time.Millisecond)
}

func TestSendEndpointRejectsBadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content":"hi","model":"made-up-model"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body model.ErrorEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bad Request", body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestReactionEndpoint(t *testing.T) {
	r, session := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content":"rate me"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var sent model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))

	rec = doJSON(t, r, http.MethodPost, "/api/v1/messages/"+sent.MessageID+"/reactions", `{"kind":"thumbsUp"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	msg, ok := func() (model.Message, bool) {
		for _, m := range session.Messages() {
			if m.ID == sent.MessageID {
				return m, true
			}
		}
		return model.Message{}, false
	}()
	require.True(t, ok)
	assert.True(t, msg.Reactions.ThumbsUp)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/messages/"+sent.MessageID+"/reactions", `{"kind":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/messages/unknown-id/reactions", `{"kind":"thumbsUp"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversationEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/conversations", `{"name":"Research","model":"gemini-2.5-flash"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Research", created.RoomName)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.ListConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total) // "Default Chat" plus "Research"
	assert.Equal(t, created.ID, list.ActiveID)

	// Filtering by model keeps only the matching conversation.
	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations?model=gemini-2.5-flash", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/conversations/no-such-conversation/select", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	r, session := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/messages", `{"content":"for the record"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, func() bool {
		return len(session.Messages()) == 2
	}, 2*time.Second, 2*time.Millisecond)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/active/export?format=txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".txt")
	assert.Contains(t, rec.Body.String(), "for the record")

	rec = doJSON(t, r, http.MethodGet, "/api/v1/conversations/active/export?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelEndpoints(t *testing.T) {
	r, session := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.DefaultModel)

	rec = doJSON(t, r, http.MethodPut, "/api/v1/models/selected", `{"model":"claude-4.0-sonnet"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "claude-4.0-sonnet", session.SelectedModel())

	rec = doJSON(t, r, http.MethodPut, "/api/v1/models/selected", `{"model":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionSnapshot(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, true, snap["backend_healthy"])
	assert.NotEmpty(t, snap["active_id"])
	assert.Equal(t, model.DefaultModel, snap["selected_model"])
}

func TestReadyEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// sseRecorder is a flushable ResponseWriter safe for concurrent reads
// while the stream goroutine writes.
type sseRecorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	header http.Header
}

func newSSERecorder() *sseRecorder {
	return &sseRecorder{header: make(http.Header)}
}

func (r *sseRecorder) Header() http.Header { return r.header }

func (r *sseRecorder) WriteHeader(int) {}

func (r *sseRecorder) Flush() {}

func (r *sseRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(b)
}

func (r *sseRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestStreamTearsDownOnDisconnect(t *testing.T) {
	_, session := newTestRouter(t)
	h := NewStreamHandler(session, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil).WithContext(ctx)
	rec := newSSERecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), "replay_complete")
	}, 2*time.Second, 2*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on client disconnect")
	}

	written := len(rec.String())

	// Store activity after the disconnect must not reach the closed
	// stream; its subscription is gone.
	_, err := session.Send(context.Background(), &model.SendMessageRequest{Content: "after close"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(session.Messages()) == 2
	}, 2*time.Second, 2*time.Millisecond)

	assert.Equal(t, written, len(rec.String()))
}
