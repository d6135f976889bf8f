package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gidvion/chat-core/internal/model"
)

// Gateway talks to the remote chat backend over HTTP/JSON. It is the
// default Client implementation.
type Gateway struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithAuthToken sets the bearer token sent on every request.
func WithAuthToken(token string) GatewayOption {
	return func(g *Gateway) { g.authToken = token }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.httpClient = c }
}

// NewGateway creates a gateway client for the given base URL.
func NewGateway(baseURL string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SendMessage submits a user message for inference.
func (g *Gateway) SendMessage(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	var resp SendResponse
	if err := g.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &resp, nil
}

// CheckHealth reports whether the backend answers its health endpoint.
func (g *Gateway) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return g.do(ctx, http.MethodGet, "/health", nil, nil) == nil
}

// CurrentUser returns the authenticated user.
func (g *Gateway) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := g.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// ListConversations returns all known conversations.
func (g *Gateway) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := g.do(ctx, http.MethodGet, "/api/conversations", nil, &convs); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// CreateConversation creates a conversation.
func (g *Gateway) CreateConversation(ctx context.Context, name, modelID string) (*CreatedConversation, error) {
	req := model.CreateConversationRequest{Name: name, Model: modelID}
	var created CreatedConversation
	if err := g.do(ctx, http.MethodPost, "/api/conversations", &req, &created); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &created, nil
}

// DeleteConversation removes a conversation.
func (g *Gateway) DeleteConversation(ctx context.Context, id string) error {
	path := "/api/conversations/" + url.PathEscape(id)
	if err := g.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ConversationMessages returns the raw query records for a conversation.
func (g *Gateway) ConversationMessages(ctx context.Context, id string) ([]QueryRecord, error) {
	path := "/api/conversations/" + url.PathEscape(id) + "/queries"
	var records []QueryRecord
	if err := g.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("get conversation messages: %w", err)
	}
	return records, nil
}

// do performs one JSON round trip. A non-2xx response is surfaced as an
// error carrying the backend's error message when one is present.
func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.authToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("backend returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
