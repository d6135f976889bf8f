package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/gidvion/chat-core/internal/model"
)

// Export formats.
const (
	ExportMarkdown = "md"
	ExportText     = "txt"
)

// ExportConversation renders the active conversation's history for
// download. Supported formats are "md" and "txt". It returns a
// suggested filename alongside the rendered bytes.
func (s *Session) ExportConversation(format string) (string, []byte, error) {
	conv, ok := s.registry.Active()
	if !ok {
		return "", nil, ErrNoActiveConversation
	}
	msgs := s.store.All()

	var b strings.Builder
	switch format {
	case ExportMarkdown:
		fmt.Fprintf(&b, "# %s\n\n", conv.RoomName)
		fmt.Fprintf(&b, "Exported %s\n\n", time.Now().Format("2006-01-02 15:04"))
		for _, m := range msgs {
			who := "User"
			if m.Sender != model.SenderUser {
				who = "AI"
				if m.Model != "" {
					who = "AI (" + m.Model + ")"
				}
			}
			fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n\n", who, m.Timestamp.Format("15:04:05"), m.Content)
		}
	case ExportText:
		fmt.Fprintf(&b, "%s\n\n", conv.RoomName)
		for _, m := range msgs {
			fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04:05"), m.Sender, m.Content)
		}
	default:
		return "", nil, fmt.Errorf("unsupported export format %q", format)
	}

	name := fmt.Sprintf("%s-%s.%s",
		sanitizeFilename(conv.RoomName),
		time.Now().Format("20060102-150405"),
		format,
	)
	return name, []byte(b.String()), nil
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}
