package session

import (
	"time"

	"github.com/eleccia/chatbot-engine/internal/model"
)

// Append adds a transcript message and updates the derived metadata. It is a
// pure data operation; the caller persists the session via the store.
func Append(s *model.Session, sender model.Sender, content, intent string) *model.Session {
	now := time.Now().UTC()

	s.Transcript = append(s.Transcript, model.Message{
		Sender:    sender,
		Content:   content,
		Timestamp: now,
		Intent:    intent,
	})
	s.MessageCount = len(s.Transcript)
	s.LastActivityAt = now

	return s
}
