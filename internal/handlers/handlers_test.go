package handlers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jwebster45206/npc-builder/pkg/session"
	"github.com/jwebster45206/npc-builder/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func newTestManager(t *testing.T, store storage.Storage, publisher session.Publisher) *session.Manager {
	t.Helper()
	m := session.NewManager(store, publisher, session.DefaultRenameDelay, testLogger())
	t.Cleanup(m.Close)
	return m
}
