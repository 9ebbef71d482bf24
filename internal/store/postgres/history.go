// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package postgres

import (
	"context"
	"database/sql"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Compile-time interface check.
var _ store.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements store.HistoryStore on PostgreSQL.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (h *HistoryStore) Begin(ctx context.Context, query string) (int64, error) {
	var id int64
	if err := h.db.QueryRowContext(ctx,
		`INSERT INTO search_history (query) VALUES ($1) RETURNING id`, query,
	).Scan(&id); err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "inserting search history: %w", err)
	}
	return id, nil
}

func (h *HistoryStore) Complete(ctx context.Context, id int64, resultCount int, responseTime float64) error {
	res, err := h.db.ExecContext(ctx,
		`UPDATE search_history SET artifact_count = $1, response_time = $2 WHERE id = $3`,
		resultCount, responseTime, id)
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "updating search history %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return srserr.Errorf(srserr.CodeStoreHistoryGetNotFound, "search history %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (h *HistoryStore) Record(ctx context.Context, rec *store.SearchHistoryRecord) error {
	const stmt = `
INSERT INTO search_history (query, artifact_count, response_time, created_at)
VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
RETURNING id, created_at`
	var created any
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt
	}
	if err := h.db.QueryRowContext(ctx, stmt, rec.Query, rec.ResultCount, rec.ResponseTime, created).
		Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "recording search history: %w", err)
	}
	return nil
}

func (h *HistoryStore) ListRecent(ctx context.Context, limit int) ([]*store.SearchHistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx, `
SELECT id, query, COALESCE(artifact_count, 0), COALESCE(response_time, 0), created_at
FROM search_history ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "listing search history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*store.SearchHistoryRecord
	for rows.Next() {
		var r store.SearchHistoryRecord
		if err := rows.Scan(&r.ID, &r.Query, &r.ResultCount, &r.ResponseTime, &r.CreatedAt); err != nil {
			return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "scanning search history: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "iterating search history: %w", err)
	}
	return out, nil
}

func (h *HistoryStore) Delete(ctx context.Context, id int64) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM search_history WHERE id = $1`, id)
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
	err := h.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(AVG(response_time) FILTER (WHERE response_time >= 0), 0)
FROM search_history`).Scan(&stats.TotalSearches, &stats.AvgResponseTime)
	if err != nil {
		return store.HistoryStats{}, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "reading search stats: %w", err)
	}
	return stats, nil
}

func (h *HistoryStore) Close() error { return nil }
