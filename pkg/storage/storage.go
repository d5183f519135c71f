package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// ErrNPCNotFound is returned when the catalog has no NPC with the requested id.
var ErrNPCNotFound = errors.New("npc not found")

// SessionRecord is the persisted snapshot of an editing session.
type SessionRecord struct {
	ID        uuid.UUID       `json:"id"`
	Document  *npc.Definition `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Storage defines a unified interface for all storage operations
// This interface combines editing sessions (Redis) with the stored NPC catalog (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session operations (Redis-backed, expire with the session TTL)
	SaveSession(ctx context.Context, rec *SessionRecord) error
	LoadSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// NPC catalog operations (filesystem-backed, read-only)
	// ListNPCs maps display names to catalog ids.
	ListNPCs(ctx context.Context) (map[string]string, error)
	GetNPC(ctx context.Context, id string) (*npc.Definition, error)
}
