// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package vectorsync_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider/local"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store/memory"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/vectorsync"
	"github.com/stretchr/testify/require"
)

const testDims = 32

var errEmbed = errors.New("embedding service unreachable")

// flakyEmbedder wraps the local embedder and fails for any text containing
// one of the poison substrings.
type flakyEmbedder struct {
	inner *local.Embedder

	mu         sync.Mutex
	poison     []string
	batchCalls int
}

func newFlakyEmbedder(t *testing.T, poison ...string) *flakyEmbedder {
	t.Helper()
	e, err := local.NewEmbedder(testDims)
	require.NoError(t, err)
	return &flakyEmbedder{inner: e, poison: poison}
}

func (f *flakyEmbedder) Name() string    { return "flaky" }
func (f *flakyEmbedder) Dimensions() int { return testDims }

func (f *flakyEmbedder) poisoned(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.poison {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.poisoned(text) {
		return nil, errEmbed
	}
	return f.inner.Embed(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()
	for _, t := range texts {
		if f.poisoned(t) {
			return nil, errEmbed
		}
	}
	return f.inner.EmbedBatch(ctx, texts)
}

func (f *flakyEmbedder) BatchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCalls
}

type fixture struct {
	artifacts *memory.ArtifactStore
	index     *memory.VectorIndex
	embedder  *flakyEmbedder
	svc       *vectorsync.Service
}

func newFixture(t *testing.T, poison ...string) *fixture {
	t.Helper()
	idx, err := memory.NewVectorIndex(testDims)
	require.NoError(t, err)
	f := &fixture{
		artifacts: memory.NewArtifactStore(),
		index:     idx,
		embedder:  newFlakyEmbedder(t, poison...),
	}
	f.svc = vectorsync.NewService(f.artifacts, f.index, f.embedder, vectorsync.Config{
		BatchSize: 2,
		Logger:    discardLogger(),
	})
	return f
}

func (f *fixture) create(t *testing.T, title, content, category string) *store.Artifact {
	t.Helper()
	a := &store.Artifact{Title: title, Content: content, Category: category}
	_, err := f.artifacts.Create(context.Background(), a)
	require.NoError(t, err)
	return a
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.index.Count(context.Background())
	require.NoError(t, err)
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
