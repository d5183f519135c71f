package services

import (
	"context"
	"time"
)

// Cache is the key/value store behind session snapshots and the health check.
type Cache interface {
	Ping(ctx context.Context) error

	// Set stores value under key. A zero expiration keeps the key forever.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Get returns "" and no error when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	Del(ctx context.Context, keys ...string) error

	Close() error

	// WaitForConnection retries Ping until the cache answers or ctx ends.
	WaitForConnection(ctx context.Context) error
}
