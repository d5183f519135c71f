package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeConnected       EventType = "connected"
	EventTypeDocumentUpdated EventType = "document.updated"
)

// Event is the envelope published on a session channel and forwarded to
// subscribers unchanged.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DocumentUpdated is the payload of a document.updated event.
type DocumentUpdated struct {
	Filename string          `json:"filename"`
	Document *npc.Definition `json:"document"`
}

// Channel names the pub/sub channel of one editing session.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("npc-session-events:%s", sessionID.String())
}

// Broadcaster publishes session events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishDocumentUpdated publishes the full document after a change.
func (b *Broadcaster) PublishDocumentUpdated(ctx context.Context, sessionID uuid.UUID, doc *npc.Definition) error {
	data, err := json.Marshal(DocumentUpdated{
		Filename: npc.ExportFilename(doc),
		Document: doc,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeDocumentUpdated,
		SessionID: sessionID.String(),
		Data:      data,
	})
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}
