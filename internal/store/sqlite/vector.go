// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorIndex = (*VectorIndex)(nil)

// maxQueryK is the largest k a vec0 KNN query accepts.
const maxQueryK = 4096

// VectorIndex implements store.VectorIndex backed by SQLite with sqlite-vec.
// Distances are Euclidean.
type VectorIndex struct {
	db         *sql.DB
	dimensions int
}

// NewVectorIndex opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table and companion metadata table.
func NewVectorIndex(dbPath string, dimensions int) (*VectorIndex, error) {
	if dimensions <= 0 {
		return nil, srserr.Errorf(srserr.CodeVectorDimensionsInvalid, "vector dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open(DriverName, dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeVectorIndexUnavailable, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, srserr.Errorf(srserr.CodeVectorIndexUnavailable, "pinging sqlite db: %w", err)
	}

	if err := migrateVector(db, dimensions); err != nil {
		_ = db.Close()
		return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "migrating vector tables: %w", err)
	}

	return &VectorIndex{db: db, dimensions: dimensions}, nil
}

func migrateVector(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS artifact_vectors USING vec0(id INTEGER PRIMARY KEY, embedding float[%d])`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating artifact_vectors virtual table: %w", err)
	}

	const metaDDL = `
CREATE TABLE IF NOT EXISTS artifact_vector_metadata (
	id       INTEGER PRIMARY KEY,
	metadata TEXT NOT NULL DEFAULT '{}'
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return fmt.Errorf("creating artifact_vector_metadata table: %w", err)
	}

	return nil
}

func (v *VectorIndex) Dimensions() int { return v.dimensions }

// Upsert inserts or replaces one entry.
func (v *VectorIndex) Upsert(ctx context.Context, entry store.VectorEntry) error {
	return v.UpsertBatch(ctx, []store.VectorEntry{entry})
}

// UpsertBatch writes all entries in one transaction; either all land or none.
func (v *VectorIndex) UpsertBatch(ctx context.Context, entries []store.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := e.Validate(v.dimensions); err != nil {
			return err
		}
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if err := upsertEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "committing vector upsert: %w", err)
	}
	return nil
}

func upsertEntry(ctx context.Context, tx *sql.Tx, e store.VectorEntry) error {
	blob, err := sqlite_vec.SerializeFloat32(e.Embedding)
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "serializing embedding %d: %w", e.ID, err)
	}
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "marshalling vector metadata %d: %w", e.ID, err)
	}

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_vectors WHERE id = ?`, e.ID); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "deleting existing vector %d: %w", e.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO artifact_vectors(id, embedding) VALUES (?, ?)`, e.ID, blob); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "inserting vector %d: %w", e.ID, err)
	}

	const metaQ = `INSERT INTO artifact_vector_metadata(id, metadata) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET metadata = excluded.metadata`
	if _, err := tx.ExecContext(ctx, metaQ, e.ID, string(metaJSON)); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "upserting vector metadata %d: %w", e.ID, err)
	}
	return nil
}

// Query performs a k-nearest-neighbor search ordered by ascending distance.
func (v *VectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]store.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := store.CheckDimensions("query embedding", embedding, v.dimensions); err != nil {
		return nil, err
	}
	k = min(k, maxQueryK)

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "serializing query vector: %w", err)
	}

	const q = `SELECT v.id, v.distance, COALESCE(m.metadata, '{}')
FROM artifact_vectors v
LEFT JOIN artifact_vector_metadata m ON m.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := v.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []store.VectorHit
	for rows.Next() {
		var (
			h       store.VectorHit
			metaStr string
		)
		if err := rows.Scan(&h.ID, &h.Distance, &metaStr); err != nil {
			return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "scanning vector hit: %w", err)
		}
		if metaStr != "" && metaStr != "{}" {
			if err := json.Unmarshal([]byte(metaStr), &h.Metadata); err != nil {
				return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "unmarshalling vector metadata: %w", err)
			}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, srserr.Errorf(srserr.CodeVectorIndexFailure, "iterating vector hits: %w", err)
	}
	return hits, nil
}

// Delete removes entries by id. Missing ids are ignored.
func (v *VectorIndex) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ph := placeholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_vectors WHERE id IN (`+ph+`)`, args...); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "deleting vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_vector_metadata WHERE id IN (`+ph+`)`, args...); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "deleting vector metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "committing vector delete: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (v *VectorIndex) Clear(ctx context.Context) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_vectors`); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "clearing vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_vector_metadata`); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "clearing vector metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return srserr.Errorf(srserr.CodeVectorIndexFailure, "committing vector clear: %w", err)
	}
	return nil
}

func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifact_vector_metadata`).Scan(&n); err != nil {
		return 0, srserr.Errorf(srserr.CodeVectorIndexFailure, "counting vectors: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}
