package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := NewRedisService(mr.Addr(), testLogger())
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestRedisService_SetGetDel(t *testing.T) {
	svc, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, svc.Ping(ctx))
	require.NoError(t, svc.Set(ctx, "npc-session:abc", `{"id":"abc"}`, time.Minute))

	got, err := svc.Get(ctx, "npc-session:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"abc"}`, got)
	assert.Equal(t, time.Minute, mr.TTL("npc-session:abc"))

	require.NoError(t, svc.Del(ctx, "npc-session:abc"))
	got, err = svc.Get(ctx, "npc-session:abc")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisService_Expiry(t *testing.T) {
	svc, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	got, err := svc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisService_WaitForConnection(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		svc, _ := setupTestRedis(t)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, svc.WaitForConnection(ctx))
	})

	t.Run("context ends first", func(t *testing.T) {
		svc, mr := setupTestRedis(t)
		mr.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		assert.Error(t, svc.WaitForConnection(ctx))
	})
}

func TestRedisService_Client(t *testing.T) {
	svc, _ := setupTestRedis(t)
	assert.NotNil(t, svc.Client())
}
