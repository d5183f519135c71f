package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsCatalogFiles(t *testing.T) {
	dataDir := t.TempDir()
	path := writeNPC(t, dataDir, "wolf.json", wolfJSON)

	w, err := NewWatcher(NewCatalog(dataDir, testLogger()).Dir())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	writeNPC(t, dataDir, "notes.txt", "ignored")
	require.NoError(t, os.WriteFile(path, []byte(`{"Type":"Simple"}`), 0o644))

	select {
	case got := <-w.Events:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no watcher event")
	}
}

func TestCatalog_WatchInvalidates(t *testing.T) {
	dataDir := t.TempDir()
	path := writeNPC(t, dataDir, "wolf.json", wolfJSON)
	c := NewCatalog(dataDir, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx))

	_, err := c.Get(ctx, "wolf")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"Type":"Simple"}`), 0o644))
	assert.Eventually(t, func() bool {
		d, err := c.Get(ctx, "wolf")
		return err == nil && d.Reference == ""
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(t.TempDir() + "/absent")
	assert.Error(t, err)
}
