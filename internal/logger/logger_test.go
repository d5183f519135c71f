package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Production(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "production", slog.LevelInfo)

	WithError(WithSession(log, "abc"), errors.New("boom")).Info("Import rejected")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "Import rejected", line["msg"])
	assert.Equal(t, "npc-builder", line["service"])
	assert.Equal(t, "abc", line["session_id"])
	assert.Equal(t, "boom", line["error"])
}

func TestNew_Development(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "development", slog.LevelWarn)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	WithRequestID(log, "req-1").Warn("shown")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "request_id=req-1")
}
