// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Help(t *testing.T) {
	out, err := runCLI(t, "", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "search", "import", "reindex", "secret", "config", "version", "--config", "--data-dir", "--verbose"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "srs dev"), out)
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, err := runCLI(t, "", "config", "show", "--config", "/nonexistent/srs.yaml")
	require.Error(t, err)
}

func TestStatusCommand_HealthyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "degraded",
			"components": map[string]any{
				"database":     map[string]any{"status": "healthy", "name": ""},
				"vector_store": map[string]any{"status": "unhealthy", "error": "collection missing"},
			},
		})
	}))
	defer srv.Close()

	old := statusClient
	statusClient = srv.Client()
	defer func() { statusClient = old }()

	out, err := runCLI(t, "", "status", "--address", strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "collection missing")
	assert.Less(t, strings.Index(out, "database"), strings.Index(out, "vector_store"))
}

func TestStatusCommand_ServerDown(t *testing.T) {
	out, err := runCLI(t, "", "status", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}

func TestSetupLogging(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	ctx := context.Background()

	_, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	_, err = runCLI(t, "", "--verbose", "version")
	require.NoError(t, err)
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	cfg := writeFile(t, "srs.yaml", "logging:\n  level: error\n  format: json\n")
	_, err = runCLI(t, "", "--config", cfg, "version")
	require.NoError(t, err)
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelWarn))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelError))
}
