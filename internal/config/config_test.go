// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/config"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "srs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "sqlite", cfg.Vector.Backend)
	assert.Equal(t, 1536, cfg.Vector.Dimensions)
	assert.Equal(t, 10, cfg.Embedding.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.InDelta(t, 0.7, cfg.Search.Threshold, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.Import.Retention)
	assert.Equal(t, 5, cfg.Import.MaxErrors)
	assert.Equal(t, 4, cfg.Sync.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "0.0.0.0:9000"
  cors_origins: ["http://localhost:5173"]
vector:
  backend: qdrant
  dimensions: 768
  qdrant:
    host: qdrant.internal
embedding:
  provider: google
  model: gemini-embedding-001
import:
  retention: 5m
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "qdrant", cfg.Vector.Backend)
	assert.Equal(t, 768, cfg.Vector.Dimensions)
	assert.Equal(t, "qdrant.internal", cfg.Vector.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Vector.Qdrant.Port)
	assert.Equal(t, "google", cfg.Embedding.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Import.Retention)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SRS_SEARCH_TOP_K", "12")
	t.Setenv("SRS_SERVER_LISTEN", "10.0.0.1:8080")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Search.TopK)
	assert.Equal(t, "10.0.0.1:8080", cfg.Server.Listen)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, srserr.HasCode(err, srserr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationRunsAtLoad(t *testing.T) {
	path := writeConfig(t, "search:\n  threshold: 1.5\n")
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.threshold")
	assert.True(t, srserr.IsInvalidInput(err))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Listen = "nope"
	cfg.Storage.Backend = "mysql"
	cfg.Vector.Backend = "none"
	cfg.Embedding.Provider = "cohere"
	cfg.Search.TopK = 0
	cfg.Sync.Workers = 0
	cfg.Logging.Format = "xml"

	errs := cfg.Validate()
	require.Len(t, errs, 6)

	var joined []string
	for _, err := range errs {
		joined = append(joined, err.Error())
	}
	all := strings.Join(joined, "\n")
	for _, key := range []string{"server.listen", "storage.backend", "embedding.provider", "search.top_k", "sync.workers", "logging.format"} {
		assert.Contains(t, all, key)
	}
}

func TestValidate_BackendCombinations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{"postgres needs dsn", func(c *config.Config) {
			c.Storage.Backend = "postgres"
			c.Vector.Backend = "none"
		}, "storage.postgres_dsn"},
		{"sqlite vectors need sqlite storage", func(c *config.Config) {
			c.Storage.Backend = "postgres"
			c.Storage.PostgresDSN = "postgres://localhost/srs"
		}, "vector.backend sqlite"},
		{"qdrant port", func(c *config.Config) {
			c.Vector.Backend = "qdrant"
			c.Vector.Qdrant.Port = 0
		}, "vector.qdrant.port"},
		{"content above title", func(c *config.Config) {
			c.Search.ContentSimilarity = 0.9
		}, "search.content_similarity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.wantKey)
		})
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.Empty(t, config.Default().Validate())
}

func TestRender_MasksCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.APIKey = "sk-live-secret"
	cfg.LLM.APIKey = "keyring://srs/llm"

	out, err := config.Render(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-live-secret")
	assert.Contains(t, string(out), "keyring://srs/llm")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Contains(t, back, "search")
}

func TestBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "srs.yaml")

	wrote, err := config.Bootstrap(path)
	require.NoError(t, err)
	assert.True(t, wrote)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Search, cfg.Search)

	wrote, err = config.Bootstrap(path)
	require.NoError(t, err)
	assert.False(t, wrote)
}
