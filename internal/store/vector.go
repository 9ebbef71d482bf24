// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

import "context"

// VectorIndex stores artifact embeddings for nearest-neighbor search. Upsert
// replaces any prior entry with the same id; deleting a missing id is not an
// error.
type VectorIndex interface {
	Upsert(ctx context.Context, entry VectorEntry) error
	UpsertBatch(ctx context.Context, entries []VectorEntry) error
	Delete(ctx context.Context, ids ...int64) error
	Query(ctx context.Context, embedding []float32, k int) ([]VectorHit, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Dimensions() int
	Close() error
}
