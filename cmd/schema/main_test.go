package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

func TestWriteSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schemas", "npc.schema.json")
	require.NoError(t, writeSchema(out, npc.Schema()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "NPC Definition", got["title"])

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
