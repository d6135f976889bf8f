package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/gidvion/chat-core/internal/model"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID. Ids are
// backend-assigned opaque strings, so only shape is checked here.
func ValidateConversationID(id string) error {
	if len(id) == 0 {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("conversation ID exceeds maximum length")
	}
	return nil
}

// ValidateMessageID validates a message ID.
func ValidateMessageID(id string) error {
	if len(id) == 0 {
		return errors.New("message ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("message ID exceeds maximum length")
	}
	return nil
}

// ValidateModelID validates a model ID against the picker catalog.
func ValidateModelID(id string) error {
	if !model.KnownModelID(id) {
		return errors.New("unknown model")
	}
	return nil
}

// ValidateReaction validates a reaction kind.
func ValidateReaction(kind string) error {
	switch model.ReactionKind(kind) {
	case model.ReactionThumbsUp, model.ReactionThumbsDown:
		return nil
	}
	return errors.New("unknown reaction")
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
