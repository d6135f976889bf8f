package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gidvion/chat-core/internal/chat"
	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/pkg/logger"
	"github.com/gidvion/chat-core/pkg/metrics"
)

// eventBuffer is how many store events one SSE client may lag before
// events are dropped for that client.
const eventBuffer = 64

// StreamHandler handles the SSE event stream.
type StreamHandler struct {
	session *chat.Session
	logger  *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(session *chat.Session, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		session: session,
		logger:  log,
	}
}

// Stream handles GET /api/v1/stream
//
// The connection opens with a full snapshot of the active conversation,
// then relays store events live: optimistic appends, status
// transitions, errors and conversation switches.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	// Subscribe before the snapshot so no event can fall between them.
	// The subscription is torn down with the connection.
	events := make(chan model.StoreEvent, eventBuffer)
	done := ctx.Done()
	unsubscribe := h.session.OnEvent(func(evt model.StoreEvent) {
		select {
		case events <- evt:
		case <-done:
		default:
		}
	})
	defer unsubscribe()

	activeID := ""
	if active, ok := h.session.ActiveConversation(); ok {
		activeID = active.ID
	}
	sendSSEEvent(w, flusher, "connected", map[string]string{
		"active_conversation_id": activeID,
	})

	// Snapshot replay.
	for _, msg := range h.session.Messages() {
		select {
		case <-done:
			return
		default:
		}
		sendSSEEvent(w, flusher, "message", msg)
	}
	sendSSEEvent(w, flusher, "replay_complete", map[string]bool{"ok": true})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.logger.Info("SSE client disconnected")
			return

		case evt := <-events:
			sendSSEEvent(w, flusher, string(evt.Type), evt)

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
