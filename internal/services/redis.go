package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectRetries    = 30
	connectRetryDelay = 2 * time.Second
)

// RedisService implements Cache on top of a single Redis client. The same
// client also carries the pub/sub traffic for session events.
type RedisService struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Cache = (*RedisService)(nil)

func NewRedisService(redisURL string, logger *slog.Logger) *RedisService {
	return NewRedisServiceFromClient(redis.NewClient(&redis.Options{Addr: redisURL}), logger)
}

// NewRedisServiceFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisServiceFromClient(client *redis.Client, logger *slog.Logger) *RedisService {
	return &RedisService{client: client, logger: logger}
}

func (r *RedisService) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisService) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		r.logger.Error("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	r.logger.Debug("Redis SET successful", "key", key, "ttl", expiration)
	return nil
}

func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis key not found", "key", key)
		return "", nil
	}
	if err != nil {
		r.logger.Error("Redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func (r *RedisService) Del(ctx context.Context, keys ...string) error {
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Redis DEL failed", "keys", keys, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}
	r.logger.Debug("Redis DEL successful", "keys", keys, "deleted_count", deleted)
	return nil
}

func (r *RedisService) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// Client exposes the underlying client for pub/sub.
func (r *RedisService) Client() *redis.Client {
	return r.client
}

func (r *RedisService) WaitForConnection(ctx context.Context) error {
	for attempt := 1; attempt <= connectRetries; attempt++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established", "attempts", attempt)
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(connectRetryDelay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", connectRetries)
}
