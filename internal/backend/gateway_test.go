package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidvion/chat-core/internal/model"
)

func userFixture() model.User {
	return model.User{ID: "u1", Username: "tester"}
}

func TestGatewaySendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var req SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		assert.Equal(t, "user: earlier", req.Context)

		json.NewEncoder(w).Encode(SendResponse{Response: "hi back", Model: "gemini-2.5-pro"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, WithAuthToken("token-123"))
	resp, err := g.SendMessage(context.Background(), &SendRequest{
		Text:           "hello",
		Context:        "user: earlier",
		ConversationID: "conv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi back", resp.Response)
	assert.Equal(t, "gemini-2.5-pro", resp.Model)
}

func TestGatewaySurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "model overloaded"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	_, err := g.SendMessage(context.Background(), &SendRequest{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Contains(t, err.Error(), "502")
}

func TestGatewayHealthCheck(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)
	assert.True(t, g.CheckHealth(context.Background()))

	healthy = false
	assert.False(t, g.CheckHealth(context.Background()))
}

func TestGatewayConversationRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/conversations":
			json.NewEncoder(w).Encode(CreatedConversation{
				ConversationID: "conv-9",
				RoomName:       "Research",
				CreatedAt:      now,
			})
		case "GET /api/conversations/conv-9/queries":
			json.NewEncoder(w).Encode([]QueryRecord{
				{ID: "r1", ConversationID: "conv-9", Query: "q", Result: "a", CreatedAt: now},
			})
		case "DELETE /api/conversations/conv-9":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewGateway(srv.URL)

	created, err := g.CreateConversation(context.Background(), "Research", "gemini-2.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "conv-9", created.ConversationID)

	records, err := g.ConversationMessages(context.Background(), "conv-9")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Result)

	require.NoError(t, g.DeleteConversation(context.Background(), "conv-9"))
}

func TestLocalBackendRecordsExchanges(t *testing.T) {
	l := NewLocal(nil, userFixture())
	assert.False(t, l.CheckHealth(context.Background()), "no provider means unhealthy")

	created, err := l.CreateConversation(context.Background(), "Scratch", "gemini-2.5-pro")
	require.NoError(t, err)

	convs, err := l.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Scratch", convs[0].RoomName)

	_, err = l.SendMessage(context.Background(), &SendRequest{Text: "hi", ConversationID: created.ConversationID})
	assert.Error(t, err, "sending without a provider fails")

	require.NoError(t, l.DeleteConversation(context.Background(), created.ConversationID))
	assert.Error(t, l.DeleteConversation(context.Background(), created.ConversationID))
}
