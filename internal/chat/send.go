package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gidvion/chat-core/internal/backend"
	"github.com/gidvion/chat-core/internal/model"
	"github.com/gidvion/chat-core/pkg/metrics"
)

// errorReplyPrefix fronts the synthetic AI message appended on failure.
const errorReplyPrefix = "Sorry, I encountered an error: "

// Send runs the optimistic send pipeline: the user message appears
// immediately in sending state, the backend call happens in the
// background, and the reply (or failure) reconciles the status later.
// It returns as soon as the user message is in the store.
func (s *Session) Send(ctx context.Context, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		return nil, ErrEmptyMessage
	}
	if s.User() == nil {
		return nil, ErrNotAuthenticated
	}
	if !s.Healthy() {
		return nil, ErrBackendUnhealthy
	}
	convID := s.registry.ActiveID()
	if convID == "" {
		return nil, ErrNoActiveConversation
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.SelectedModel()
	}

	// Context is captured before the new message lands, so the backend
	// sees the conversation as it stood when the user hit send.
	window := s.buildContext()

	msg := model.NewUserMessage(convID, req.Content)
	msg.Emotion = req.Emotion
	msg.Attachments = req.Attachments
	if err := s.store.Append(*msg); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.SenderUser), string(model.StatusSending)).Inc()
	s.mirrorMessage(msg)
	s.registry.Touch(convID, req.Content, msg.Timestamp)
	s.setTyping(true)

	// Paced transition to sent. UpdateStatus is a guarded no-op when the
	// backend already moved the message past sending.
	msgID := msg.ID
	time.AfterFunc(s.sentDelay, func() {
		s.store.UpdateStatus(msgID, model.StatusSent, "")
	})

	s.bg.Add(1)
	go s.dispatch(convID, msgID, &backend.SendRequest{
		Text:             req.Content,
		Context:          window,
		Emotion:          req.Emotion,
		Model:            modelID,
		ConversationID:   convID,
		Attachments:      req.Attachments,
		WebSearchEnabled: req.WebSearchEnabled,
	})

	return &model.SendMessageResponse{MessageID: msgID}, nil
}

// dispatch performs the backend round trip and reconciles the store.
func (s *Session) dispatch(convID, msgID string, req *backend.SendRequest) {
	defer s.bg.Done()
	defer s.setTyping(false)

	log := s.logger.WithConversation(convID)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	resp, err := s.backend.SendMessage(ctx, req)
	elapsed := time.Since(start).Seconds()

	// A reply for a conversation that is no longer active must not leak
	// into the current history. The paced sent transition is harmless
	// either way; everything after it is dropped.
	if s.registry.ActiveID() != convID {
		metrics.StaleResponsesDropped.Inc()
		metrics.RecordSend(req.Model, "stale", elapsed)
		log.Info("dropping reply for inactive conversation", zap.String("message_id", msgID))
		return
	}

	if err != nil {
		detail := err.Error()
		s.store.UpdateStatus(msgID, model.StatusError, detail)

		reply := model.NewAIMessage(convID, errorReplyPrefix+detail, req.Model)
		reply.Status = model.StatusError
		reply.Error = detail
		if appendErr := s.store.Append(*reply); appendErr != nil {
			log.Error("failed to append error reply", zap.Error(appendErr))
		}
		metrics.MessagesTotal.WithLabelValues(string(model.SenderAI), string(model.StatusError)).Inc()
		metrics.RecordSend(req.Model, "error", elapsed)
		log.Warn("send failed", zap.String("message_id", msgID), zap.Error(err))
		return
	}

	s.store.UpdateStatus(msgID, model.StatusDelivered, "")

	replyModel := resp.Model
	if replyModel == "" {
		replyModel = req.Model
	}
	reply := model.NewAIMessage(convID, resp.Response, replyModel)
	reply.Emotion = req.Emotion
	if appendErr := s.store.Append(*reply); appendErr != nil {
		log.Error("failed to append reply", zap.Error(appendErr))
	}
	metrics.MessagesTotal.WithLabelValues(string(model.SenderAI), string(model.StatusRead)).Inc()
	s.mirrorMessage(reply)

	s.store.UpdateStatus(msgID, model.StatusRead, "")
	s.registry.Touch(convID, resp.Response, reply.Timestamp)

	metrics.RecordSend(replyModel, "ok", elapsed)
	log.Info("reply received",
		zap.String("message_id", msgID),
		zap.String("model", replyModel),
		zap.Float64("seconds", elapsed),
	)
}

// buildContext renders the trailing context window as "sender: content"
// lines, oldest first.
func (s *Session) buildContext() string {
	msgs := s.store.All()
	if len(msgs) > contextWindow {
		msgs = msgs[len(msgs)-contextWindow:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Sender)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Retry re-submits a previously failed user message as a fresh send.
// Only errored messages qualify: a message still in flight or already
// answered must not be duplicated. The failed original keeps its
// terminal error status; retrying never rewrites history.
func (s *Session) Retry(ctx context.Context, messageID string) (*model.SendMessageResponse, error) {
	msg, ok := s.store.Get(messageID)
	if !ok {
		return nil, ErrMessageNotFound
	}
	if msg.Sender != model.SenderUser {
		return nil, ErrMessageNotFound
	}
	if msg.Status != model.StatusError {
		return nil, ErrNotRetryable
	}
	return s.Send(ctx, &model.SendMessageRequest{
		Content:     msg.Content,
		Attachments: msg.Attachments,
		Emotion:     msg.Emotion,
	})
}
