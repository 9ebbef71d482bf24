// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

//go:build !windows

package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/config"
)

func TestCheckPermissions(t *testing.T) {
	tests := []struct {
		name   string
		perm   os.FileMode
		secure bool
	}{
		{"owner only", 0o600, true},
		{"read only owner", 0o400, true},
		{"group readable", 0o640, false},
		{"world readable", 0o644, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "srs.yaml")
			require.NoError(t, os.WriteFile(path, []byte("server: {}\n"), 0o600))
			require.NoError(t, os.Chmod(path, tt.perm))

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			assert.Equal(t, tt.secure, config.CheckPermissions(logger, path))
			if tt.secure {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), "readable by other users")
			}
		})
	}
}

func TestCheckPermissions_MissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.True(t, config.CheckPermissions(logger, filepath.Join(t.TempDir(), "absent.yaml")))
	assert.True(t, config.CheckPermissions(logger, ""))
}
