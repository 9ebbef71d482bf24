// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package google_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider/google"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogle_MissingAPIKey(t *testing.T) {
	_, err := google.NewEmbedder(google.Config{})
	require.Error(t, err)
	assert.True(t, srserr.HasCode(err, srserr.CodeProviderRequestInvalid))

	_, err = google.NewCompleter(google.Config{})
	require.Error(t, err)
	assert.True(t, srserr.IsInvalidInput(err))
}

func geminiServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "mbedContent"):
			_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.25,0.5,0.75]}]}`))
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"from gemini"}]}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_Embed(t *testing.T) {
	srv := geminiServer(t)
	e, err := google.NewEmbedder(google.Config{APIKey: "k", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)
	assert.Equal(t, "google", e.Name())

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, vec)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := geminiServer(t)
	e, err := google.NewEmbedder(google.Config{APIKey: "k", BaseURL: srv.URL, Dimensions: 768})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, srserr.HasCode(err, srserr.CodeProviderResponseInvalid))
}

func TestCompleter_Complete(t *testing.T) {
	srv := geminiServer(t)
	c, err := google.NewCompleter(google.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), provider.CompletionRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", out)
}

func TestBuildConfig(t *testing.T) {
	temp := float32(0.3)
	cfg := google.BuildConfig(provider.CompletionRequest{
		SystemPrompt: "sys",
		Temperature:  &temp,
	}, 256)

	assert.Equal(t, int32(256), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)

	cfg = google.BuildConfig(provider.CompletionRequest{MaxTokens: 32}, 256)
	assert.Equal(t, int32(32), cfg.MaxOutputTokens)
	assert.Nil(t, cfg.SystemInstruction)
}
