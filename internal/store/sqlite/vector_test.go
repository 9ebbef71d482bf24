// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store/sqlite"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int64, category string, v ...float32) store.VectorEntry {
	return store.VectorEntry{
		ID:        id,
		Embedding: v,
		Metadata:  store.VectorMetadata{Category: category, Source: store.VectorSourceArtifact},
	}
}

func TestVectorIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	vi := newTestVectorIndex(t, 3)

	require.NoError(t, vi.Upsert(ctx, entry(1, "a", 1, 0, 0)))
	require.NoError(t, vi.Upsert(ctx, entry(2, "b", 0, 1, 0)))
	require.NoError(t, vi.Upsert(ctx, entry(3, "a", 0.9, 0.1, 0)))

	hits, err := vi.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
	assert.Equal(t, int64(3), hits[1].ID)
	assert.Equal(t, "a", hits[0].Metadata.Category)
	assert.Equal(t, store.VectorSourceArtifact, hits[0].Metadata.Source)
}

func TestVectorIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	vi := newTestVectorIndex(t, 3)

	require.NoError(t, vi.Upsert(ctx, entry(1, "old", 1, 0, 0)))
	require.NoError(t, vi.Upsert(ctx, entry(1, "new", 0, 1, 0)))

	hits, err := vi.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, "new", hits[0].Metadata.Category)

	n, err := vi.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestVectorIndex_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	vi := newTestVectorIndex(t, 3)

	require.NoError(t, vi.Upsert(ctx, entry(1, "", 1, 0, 0)))
	require.NoError(t, vi.Delete(ctx, 1))
	require.NoError(t, vi.Delete(ctx, 1))
	require.NoError(t, vi.Delete(ctx, 99))
	require.NoError(t, vi.Delete(ctx))

	hits, err := vi.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndex_UpsertBatchAllOrNothing(t *testing.T) {
	ctx := context.Background()
	vi := newTestVectorIndex(t, 3)

	err := vi.UpsertBatch(ctx, []store.VectorEntry{
		entry(1, "", 1, 0, 0),
		entry(2, "", 0, 1), // wrong dimensions
	})
	require.Error(t, err)
	assert.True(t, srserr.IsInvalidInput(err))
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	n, err := vi.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, vi.UpsertBatch(ctx, []store.VectorEntry{
		entry(1, "", 1, 0, 0),
		entry(2, "", 0, 1, 0),
	}))
	n, err = vi.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestVectorIndex_Clear(t *testing.T) {
	ctx := context.Background()
	vi := newTestVectorIndex(t, 2)

	require.NoError(t, vi.UpsertBatch(ctx, []store.VectorEntry{entry(1, "", 1, 0), entry(2, "", 0, 1)}))
	require.NoError(t, vi.Clear(ctx))

	n, err := vi.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	hits, err := vi.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndex_QueryValidation(t *testing.T) {
	ctx := context.Background()
	vi := newTestVectorIndex(t, 3)

	hits, err := vi.Query(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = vi.Query(ctx, []float32{1, 0}, 3)
	require.Error(t, err)
	assert.True(t, srserr.IsInvalidInput(err))
}

func TestNewVectorIndex_InvalidDimensions(t *testing.T) {
	_, err := sqlite.NewVectorIndex(testDBPath(t, "bad"), 0)
	require.Error(t, err)
}

func TestVectorIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "reopen")

	vi, err := sqlite.NewVectorIndex(path, 2)
	require.NoError(t, err)
	require.NoError(t, vi.Upsert(ctx, entry(7, "x", 0, 1)))
	require.NoError(t, vi.Close())

	vi, err = sqlite.NewVectorIndex(path, 2)
	require.NoError(t, err)
	defer func() { _ = vi.Close() }()

	hits, err := vi.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(7), hits[0].ID)
}
