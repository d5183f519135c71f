package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-builder/internal/services"
	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/storage"
)

const sessionKeyPrefix = "npc-session:"

// RedisStorage implements storage.Storage with session snapshots in Redis
// and the stored NPC catalog on the filesystem.
type RedisStorage struct {
	cache   services.Cache
	catalog *Catalog
	ttl     time.Duration
	logger  *slog.Logger
}

var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates the storage. Snapshots expire ttl after their last
// save; a non-positive ttl falls back to one hour.
func NewRedisStorage(cache services.Cache, catalog *Catalog, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStorage{
		cache:   cache,
		catalog: catalog,
		ttl:     ttl,
		logger:  logger,
	}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.cache.Ping(ctx)
}

func (r *RedisStorage) Close() error {
	return r.cache.Close()
}

// Session operations (Redis-backed)

func (r *RedisStorage) SaveSession(ctx context.Context, rec *storage.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", rec.ID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.cache.Set(ctx, sessionKey(rec.ID), string(data), r.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession returns nil and no error when the session does not exist or
// has expired.
func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*storage.SessionRecord, error) {
	data, err := r.cache.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if data == "" {
		r.logger.Debug("Session not found", "session_id", id)
		return nil, nil
	}

	var rec storage.SessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &rec, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.cache.Del(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// NPC catalog operations (filesystem-backed)

func (r *RedisStorage) ListNPCs(ctx context.Context) (map[string]string, error) {
	return r.catalog.List(ctx)
}

func (r *RedisStorage) GetNPC(ctx context.Context, id string) (*npc.Definition, error) {
	return r.catalog.Get(ctx, id)
}
