// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Compile-time interface check.
var _ store.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements store.HistoryStore on the search_history table.
type HistoryStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryStoreWithDB uses a connection already migrated by
// NewArtifactStoreWithDB. The caller keeps ownership of db.
func NewHistoryStoreWithDB(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db, now: time.Now}
}

func (h *HistoryStore) Begin(ctx context.Context, query string) (int64, error) {
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO search_history (query, created_at) VALUES (?, ?)`,
		query, formatTime(h.now().UTC()),
	)
	if err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "inserting search history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "reading search history id: %w", err)
	}
	return id, nil
}

func (h *HistoryStore) Complete(ctx context.Context, id int64, resultCount int, responseTime float64) error {
	res, err := h.db.ExecContext(ctx,
		`UPDATE search_history SET artifact_count = ?, response_time = ? WHERE id = ?`,
		resultCount, responseTime, id,
	)
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "updating search history %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return srserr.Errorf(srserr.CodeStoreHistoryGetNotFound, "search history %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (h *HistoryStore) Record(ctx context.Context, rec *store.SearchHistoryRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = h.now().UTC()
	}
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO search_history (query, artifact_count, response_time, created_at) VALUES (?, ?, ?, ?)`,
		rec.Query, rec.ResultCount, rec.ResponseTime, formatTime(created),
	)
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "recording search history: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	rec.CreatedAt = created
	return nil
}

func (h *HistoryStore) ListRecent(ctx context.Context, limit int) ([]*store.SearchHistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, query, COALESCE(artifact_count, 0), COALESCE(response_time, 0), created_at
FROM search_history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "listing search history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*store.SearchHistoryRecord
	for rows.Next() {
		var (
			r         store.SearchHistoryRecord
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Query, &r.ResultCount, &r.ResponseTime, &createdAt); err != nil {
			return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "scanning search history: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "iterating search history: %w", err)
	}
	return out, nil
}

func (h *HistoryStore) Delete(ctx context.Context, id int64) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM search_history WHERE id = ?`, id)
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "deleting search history %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "deleting search history %d: %w", id, err)
	}
	if n == 0 {
		return srserr.Errorf(srserr.CodeStoreHistoryGetNotFound, "search history %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (h *HistoryStore) Stats(ctx context.Context) (store.HistoryStats, error) {
	var stats store.HistoryStats
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*),
	COALESCE((SELECT AVG(response_time) FROM search_history WHERE response_time >= 0), 0)
FROM search_history`).Scan(&stats.TotalSearches, &stats.AvgResponseTime)
	if err != nil {
		return store.HistoryStats{}, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "reading search stats: %w", err)
	}
	return stats, nil
}

// Close is a no-op; the shared connection is closed by its owner.
func (h *HistoryStore) Close() error { return nil }
