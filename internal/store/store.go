// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

import "context"

// ArtifactStore persists artifacts. Deletion is soft: it clears IsActive, and
// every read path only sees active rows.
type ArtifactStore interface {
	Get(ctx context.Context, id int64) (*Artifact, error)
	// Create assigns ID, IsActive and timestamps on a and returns the new id.
	Create(ctx context.Context, a *Artifact) (int64, error)
	Update(ctx context.Context, id int64, patch ArtifactPatch) (*Artifact, error)
	Delete(ctx context.Context, id int64) error

	// ListActive returns every active artifact ordered by id.
	ListActive(ctx context.Context) ([]*Artifact, error)
	// List returns one page of active artifacts, newest first, and the total
	// number of matching rows.
	List(ctx context.Context, opts ListOpts) ([]*Artifact, int64, error)
	// SearchKeyword ranks title matches above content-only matches, then
	// newer artifacts first.
	SearchKeyword(ctx context.Context, q KeywordQuery) ([]*KeywordMatch, error)
	CountActive(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// HistoryStore is the append-only search log.
type HistoryStore interface {
	// Begin writes a record with no result yet and returns its id.
	Begin(ctx context.Context, query string) (int64, error)
	// Complete fills in the result of a record written by Begin.
	Complete(ctx context.Context, id int64, resultCount int, responseTime float64) error
	// Record writes a finished record in one step.
	Record(ctx context.Context, rec *SearchHistoryRecord) error
	ListRecent(ctx context.Context, limit int) ([]*SearchHistoryRecord, error)
	Delete(ctx context.Context, id int64) error
	// Stats averages response time over successful searches only.
	Stats(ctx context.Context) (HistoryStats, error)
	Close() error
}
