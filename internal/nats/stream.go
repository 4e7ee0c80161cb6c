package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/eleccia/chatbot-engine/internal/model"
)

const (
	// StreamName is the name of the archived-conversations stream.
	StreamName = "ARCHIVES"

	// SubjectPrefix is the prefix for all conversation subjects.
	SubjectPrefix = "conv"
)

// StreamManager publishes engine events to JetStream for downstream
// reporting. The engine only writes; reporting consumers read the stream.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the archives stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Archived conversation events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// ArchiveSubject returns the subject for an archived-conversation event.
func ArchiveSubject(canal, userID string) string {
	return fmt.Sprintf("%s.%s.%s.archived", SubjectPrefix, canal, userID)
}

// ErrorSubject returns the subject for an engine error event.
func ErrorSubject(canal, userID string) string {
	return fmt.Sprintf("%s.%s.%s.error", SubjectPrefix, canal, userID)
}

// PublishArchived publishes an archived conversation to JetStream.
func (m *StreamManager) PublishArchived(ctx context.Context, conv *model.ArchivedConversation) (uint64, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal archive event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, ArchiveSubject(conv.Canal, conv.UserID), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish archive event: %w", err)
	}

	return ack.Sequence, nil
}

// EngineErrorEvent reports a turn that failed inside the engine.
type EngineErrorEvent struct {
	UserID    string    `json:"user_id"`
	Canal     string    `json:"canal"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// PublishError publishes an engine error event to JetStream.
func (m *StreamManager) PublishError(ctx context.Context, event *EngineErrorEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal error event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, ErrorSubject(event.Canal, event.UserID), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish error event: %w", err)
	}

	return ack.Sequence, nil
}
