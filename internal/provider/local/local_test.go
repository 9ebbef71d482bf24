// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package local_test

import (
	"context"
	"math"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestEmbedder_Deterministic(t *testing.T) {
	e, err := local.NewEmbedder(64)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Go channels and goroutines")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "go CHANNELS, and goroutines!")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
}

func TestEmbedder_UnitLength(t *testing.T) {
	e, err := local.NewEmbedder(32)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "vector search with sqlite")
	require.NoError(t, err)

	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbedder_SharedWordsAreCloser(t *testing.T) {
	e, err := local.NewEmbedder(local.DefaultDimensions)
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{
		"postgres connection pooling",
		"postgres connection limits",
		"baking sourdough bread",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Less(t, distance(vecs[0], vecs[1]), distance(vecs[0], vecs[2]))
}

func TestEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e, err := local.NewEmbedder(8)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestEmbedder_DefaultsAndLimits(t *testing.T) {
	e, err := local.NewEmbedder(0)
	require.NoError(t, err)
	assert.Equal(t, local.DefaultDimensions, e.Dimensions())
	assert.Equal(t, "local", e.Name())

	_, err = local.NewEmbedder(1)
	require.Error(t, err)
}

func TestEmbedder_CancelledContext(t *testing.T) {
	e, err := local.NewEmbedder(8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedBatch(ctx, []string{"a"})
	require.ErrorIs(t, err, context.Canceled)
}
