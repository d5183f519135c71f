package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"console"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestRun_StartupErrors(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "wolf.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"Type":"Simple"}`), 0o644))
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{not json`), 0o644))

	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantIs  error
		wantMsg string
	}{
		{
			name:   "missing npc file",
			file:   filepath.Join(dir, "missing.json"),
			wantIs: fs.ErrNotExist,
		},
		{
			name:   "invalid npc file",
			file:   broken,
			wantIs: npc.ErrInvalidDocument,
		},
		{
			name:    "bad debounce",
			file:    valid,
			env:     map[string]string{"RENAME_DEBOUNCE": "soon"},
			wantMsg: "invalid configuration",
		},
		{
			name:    "log file is a directory",
			file:    valid,
			env:     map[string]string{"CONSOLE_LOG": dir},
			wantMsg: "failed to open log file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("CONSOLE_LOG", "")
			t.Setenv("RENAME_DEBOUNCE", "500ms")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			withArgs(t, tt.file)

			err := run()
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
