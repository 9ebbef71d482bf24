// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package retrieval_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store/memory"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/stretchr/testify/require"
)

// tableEmbedder returns a fixed vector per query text.
type tableEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (e *tableEmbedder) Name() string    { return "table" }
func (e *tableEmbedder) Dimensions() int { return 2 }

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	return []float32{100, 100}, nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []provider.CompletionRequest
	reply string
	err   error
}

func (c *fakeCompleter) Name() string { return "fake" }

func (c *fakeCompleter) Complete(_ context.Context, req provider.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return c.reply, c.err
}

// brokenKeywordStore fails keyword search while the rest of the store works.
type brokenKeywordStore struct {
	*memory.ArtifactStore
}

func (brokenKeywordStore) SearchKeyword(context.Context, store.KeywordQuery) ([]*store.KeywordMatch, error) {
	return nil, srserr.New(srserr.CodeStoreDatabaseFailure, "database is locked")
}

type env struct {
	artifacts *memory.ArtifactStore
	history   *memory.HistoryStore
	index     *memory.VectorIndex
	embedder  *tableEmbedder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	idx, err := memory.NewVectorIndex(2)
	require.NoError(t, err)
	return &env{
		artifacts: memory.NewArtifactStore(),
		history:   memory.NewHistoryStore(),
		index:     idx,
		embedder:  &tableEmbedder{vecs: map[string][]float32{}},
	}
}

func (e *env) engine(cfg retrieval.Config) *retrieval.Engine {
	cfg.Logger = discardLogger()
	return retrieval.NewEngine(retrieval.Deps{
		Artifacts: e.artifacts,
		History:   e.history,
		Index:     e.index,
		Embedder:  e.embedder,
	}, cfg)
}

// add creates an artifact and, when vec is non-nil, indexes it.
func (e *env) add(t *testing.T, title, content, category string, vec []float32) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := e.artifacts.Create(ctx, &store.Artifact{Title: title, Content: content, Category: category})
	require.NoError(t, err)
	if vec != nil {
		require.NoError(t, e.index.Upsert(ctx, store.VectorEntry{
			ID:        id,
			Embedding: vec,
			Metadata:  store.VectorMetadata{Category: category, Source: store.VectorSourceArtifact},
		}))
	}
	return id
}

func threshold(v float64) *float64 { return &v }

func ids(resp *retrieval.Response) []int64 {
	out := make([]int64, 0, len(resp.Artifacts))
	for _, a := range resp.Artifacts {
		out = append(out, a.Artifact.ID)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errUnreachable = errors.New("connection refused")

func newArtifact(title, content string) *store.Artifact {
	return &store.Artifact{Title: title, Content: content}
}
