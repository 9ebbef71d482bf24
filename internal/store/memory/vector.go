// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// VectorIndex is a brute-force L2 index.
type VectorIndex struct {
	mu      sync.RWMutex
	dims    int
	entries map[int64]store.VectorEntry
}

var _ store.VectorIndex = (*VectorIndex)(nil)

func NewVectorIndex(dims int) (*VectorIndex, error) {
	if dims <= 0 {
		return nil, srserr.Errorf(srserr.CodeVectorDimensionsInvalid, "vector dimensions must be positive, got %d", dims)
	}
	return &VectorIndex{dims: dims, entries: make(map[int64]store.VectorEntry)}, nil
}

func (v *VectorIndex) Dimensions() int { return v.dims }

func (v *VectorIndex) Upsert(ctx context.Context, entry store.VectorEntry) error {
	return v.UpsertBatch(ctx, []store.VectorEntry{entry})
}

// UpsertBatch validates every entry before storing any of them.
func (v *VectorIndex) UpsertBatch(_ context.Context, entries []store.VectorEntry) error {
	for _, e := range entries {
		if err := e.Validate(v.dims); err != nil {
			return err
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range entries {
		e.Embedding = append([]float32(nil), e.Embedding...)
		v.entries[e.ID] = e
	}
	return nil
}

func (v *VectorIndex) Delete(_ context.Context, ids ...int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		delete(v.entries, id)
	}
	return nil
}

func (v *VectorIndex) Query(_ context.Context, embedding []float32, k int) ([]store.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := store.CheckDimensions("query embedding", embedding, v.dims); err != nil {
		return nil, err
	}

	v.mu.RLock()
	hits := make([]store.VectorHit, 0, len(v.entries))
	for id, e := range v.entries {
		hits = append(hits, store.VectorHit{ID: id, Distance: l2(embedding, e.Embedding), Metadata: e.Metadata})
	}
	v.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (v *VectorIndex) Clear(_ context.Context) error {
	v.mu.Lock()
	v.entries = make(map[int64]store.VectorEntry)
	v.mu.Unlock()
	return nil
}

func (v *VectorIndex) Count(_ context.Context) (int64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return int64(len(v.entries)), nil
}

func (v *VectorIndex) Close() error { return nil }

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
