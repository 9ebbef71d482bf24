// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Compile-time interface check.
var _ store.ArtifactStore = (*ArtifactStore)(nil)

const artifactColumns = `id, title, content, category, tags, metadata, source_type, source_path, is_active, created_at, updated_at`

// ArtifactStore implements store.ArtifactStore backed by SQLite.
type ArtifactStore struct {
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
}

// NewArtifactStore opens (or creates) a SQLite database at dbPath and
// initialises the artifact and search history tables.
func NewArtifactStore(dbPath string) (*ArtifactStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	s, err := NewArtifactStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewArtifactStoreWithDB uses an existing connection opened with DriverName.
// The caller keeps ownership of db.
func NewArtifactStoreWithDB(db *sql.DB) (*ArtifactStore, error) {
	if err := migrate(db); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "migrating artifact tables: %w", err)
	}
	return &ArtifactStore{db: db, now: time.Now}, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS artifacts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	metadata    TEXT NOT NULL DEFAULT '{}',
	source_type TEXT NOT NULL DEFAULT '',
	source_path TEXT NOT NULL DEFAULT '',
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artifacts_category ON artifacts(category);
CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);
CREATE INDEX IF NOT EXISTS idx_artifacts_active ON artifacts(is_active);

CREATE TABLE IF NOT EXISTS search_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	query          TEXT NOT NULL,
	artifact_count INTEGER,
	response_time  REAL,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history(created_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Ping checks the database connection.
func (s *ArtifactStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}
	return nil
}

// Close closes the database connection if the store opened it.
func (s *ArtifactStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *ArtifactStore) Create(ctx context.Context, a *store.Artifact) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}

	tagsJSON, metaJSON, err := encodeArtifactJSON(a)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	const q = `INSERT INTO artifacts (title, content, category, tags, metadata, source_type, source_path, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		a.Title, a.Content, a.Category, tagsJSON, metaJSON, a.SourceType, a.SourcePath,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "inserting artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "reading artifact id: %w", err)
	}

	a.ID = id
	a.IsActive = true
	a.CreatedAt = now
	a.UpdatedAt = now
	return id, nil
}

func (s *ArtifactStore) Get(ctx context.Context, id int64) (*store.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ? AND is_active = 1`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srserr.Errorf(srserr.CodeStoreArtifactGetNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "getting artifact %d: %w", id, err)
	}
	return a, nil
}

func (s *ArtifactStore) Update(ctx context.Context, id int64, patch store.ArtifactPatch) (*store.Artifact, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ? AND (is_active = 1 OR ?)`,
		id, patch.Reactivates())
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srserr.Errorf(srserr.CodeStoreArtifactUpdateNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "loading artifact %d: %w", id, err)
	}

	patch.Apply(a)
	a.UpdatedAt = monotonic(s.now().UTC(), a.CreatedAt)

	tagsJSON, metaJSON, err := encodeArtifactJSON(a)
	if err != nil {
		return nil, err
	}

	const q = `UPDATE artifacts SET title = ?, content = ?, category = ?, tags = ?, metadata = ?,
	source_type = ?, source_path = ?, is_active = ?, updated_at = ?
WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q,
		a.Title, a.Content, a.Category, tagsJSON, metaJSON,
		a.SourceType, a.SourcePath, boolToInt(a.IsActive), formatTime(a.UpdatedAt), id,
	); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "updating artifact %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "committing artifact update: %w", err)
	}
	return a, nil
}

// Delete soft-deletes the artifact.
func (s *ArtifactStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE artifacts SET is_active = 0, updated_at = MAX(?, created_at) WHERE id = ? AND is_active = 1`,
		formatTime(s.now().UTC()), id,
	)
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "deleting artifact %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "deleting artifact %d: %w", id, err)
	}
	if n == 0 {
		return srserr.Errorf(srserr.CodeStoreArtifactDeleteNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *ArtifactStore) ListActive(ctx context.Context) ([]*store.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "listing active artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanArtifacts(rows)
}

func (s *ArtifactStore) List(ctx context.Context, opts store.ListOpts) ([]*store.Artifact, int64, error) {
	var where strings.Builder
	where.WriteString(` WHERE is_active = 1`)
	var args []any
	if opts.Keyword != "" {
		where.WriteString(` AND (` + foldContains("title") + ` OR ` + foldContains("content") + `)`)
		args = append(args, opts.Keyword, opts.Keyword)
	}
	if opts.Category != "" {
		where.WriteString(` AND category = ?`)
		args = append(args, opts.Category)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "counting artifacts: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT ` + artifactColumns + ` FROM artifacts` + where.String() +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, limit, max(opts.Offset, 0))...)
	if err != nil {
		return nil, 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "listing artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	artifacts, err := scanArtifacts(rows)
	if err != nil {
		return nil, 0, err
	}
	return artifacts, total, nil
}

func (s *ArtifactStore) SearchKeyword(ctx context.Context, q store.KeywordQuery) ([]*store.KeywordMatch, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT ` + artifactColumns + `, CASE WHEN ` + foldContains("title") + ` THEN 1 ELSE 0 END AS title_match
FROM artifacts
WHERE is_active = 1 AND (` + foldContains("title") + ` OR ` + foldContains("content") + `)`)
	args := []any{q.Substring, q.Substring, q.Substring}

	if len(q.Categories) > 0 {
		qb.WriteString(` AND category IN (` + placeholders(len(q.Categories)) + `)`)
		for _, c := range q.Categories {
			args = append(args, c)
		}
	}
	if len(q.ExcludeIDs) > 0 {
		qb.WriteString(` AND id NOT IN (` + placeholders(len(q.ExcludeIDs)) + `)`)
		for _, id := range q.ExcludeIDs {
			args = append(args, id)
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	qb.WriteString(` ORDER BY title_match DESC, created_at DESC, id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "keyword search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*store.KeywordMatch
	for rows.Next() {
		var titleMatch int
		a, err := scanArtifactRow(rows, &titleMatch)
		if err != nil {
			return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "scanning keyword match: %w", err)
		}
		matches = append(matches, &store.KeywordMatch{Artifact: a, TitleMatch: titleMatch == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "iterating keyword matches: %w", err)
	}
	return matches, nil
}

func (s *ArtifactStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts WHERE is_active = 1`).Scan(&n); err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "counting artifacts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*store.Artifact, error) {
	return scanArtifactRow(row)
}

// scanArtifactRow scans the artifact columns followed by any extra columns.
func scanArtifactRow(row rowScanner, extra ...any) (*store.Artifact, error) {
	var (
		a                    store.Artifact
		tagsJSON, metaJSON   string
		active               int
		createdAt, updatedAt string
	)
	dest := []any{
		&a.ID, &a.Title, &a.Content, &a.Category, &tagsJSON, &metaJSON,
		&a.SourceType, &a.SourcePath, &active, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	a.IsActive = active == 1
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	if tagsJSON != "" && tagsJSON != "[]" {
		if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling artifact tags: %w", err)
		}
	}
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &a.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling artifact metadata: %w", err)
		}
	}
	return &a, nil
}

func scanArtifacts(rows *sql.Rows) ([]*store.Artifact, error) {
	var out []*store.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "scanning artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "iterating artifacts: %w", err)
	}
	return out, nil
}

func encodeArtifactJSON(a *store.Artifact) (string, string, error) {
	tags := store.NormalizeTags(a.Tags)
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", srserr.Errorf(srserr.CodeStoreInvalidInput, "marshalling artifact tags: %w", err)
	}
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return "", "", srserr.Errorf(srserr.CodeStoreInvalidInput, "marshalling artifact metadata: %w", err)
	}
	return string(tagsJSON), string(metaJSON), nil
}

// foldContains matches column against one bound substring, case-insensitive
// for any script. instr treats the argument literally, so % and _ need no
// escaping, and an empty substring matches every row.
func foldContains(column string) string {
	return `instr(fold(` + column + `), fold(?)) > 0`
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// monotonic returns t, or floor when t is earlier.
func monotonic(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime serialises a time.Time as fixed-width UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
