// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Compile-time interface check.
var _ store.ArtifactStore = (*ArtifactStore)(nil)

const artifactColumns = `id, title, content, category, tags, metadata, source_type, source_path, is_active, created_at, updated_at`

// ArtifactStore implements store.ArtifactStore on PostgreSQL. The database
// handle is owned by the caller.
type ArtifactStore struct {
	db *sql.DB
}

func NewArtifactStore(db *sql.DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

func (s *ArtifactStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return srserr.Errorf(srserr.CodeStoreDatabaseFailure, "pinging postgres: %w", err)
	}
	return nil
}

func (s *ArtifactStore) Close() error { return nil }

func (s *ArtifactStore) Create(ctx context.Context, a *store.Artifact) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreInvalidInput, "marshalling artifact metadata: %w", err)
	}
	tags := store.NormalizeTags(a.Tags)
	if tags == nil {
		tags = []string{}
	}

	const stmt = `
INSERT INTO artifacts (title, content, category, tags, metadata, source_type, source_path)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at, updated_at`
	if err := s.db.QueryRowContext(ctx, stmt,
		a.Title, a.Content, a.Category, pq.Array(tags), metaJSON, a.SourceType, a.SourcePath,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "inserting artifact: %w", err)
	}
	a.Tags = tags
	a.IsActive = true
	return a.ID, nil
}

func (s *ArtifactStore) Get(ctx context.Context, id int64) (*store.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1 AND is_active`, id)
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

	row := tx.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1 AND (is_active OR $2::boolean) FOR UPDATE`,
		id, patch.Reactivates())
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srserr.Errorf(srserr.CodeStoreArtifactUpdateNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "loading artifact %d: %w", id, err)
	}

	patch.Apply(a)
	a.Tags = store.NormalizeTags(a.Tags)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreInvalidInput, "marshalling artifact metadata: %w", err)
	}

	const stmt = `
UPDATE artifacts SET
  title=$1, content=$2, category=$3, tags=$4, metadata=$5,
  source_type=$6, source_path=$7, is_active=$8, updated_at=GREATEST(now(), created_at)
WHERE id=$9
RETURNING updated_at`
	if err := tx.QueryRowContext(ctx, stmt,
		a.Title, a.Content, a.Category, pq.Array(a.Tags), metaJSON,
		a.SourceType, a.SourcePath, a.IsActive, id,
	).Scan(&a.UpdatedAt); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "updating artifact %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "committing artifact update: %w", err)
	}
	return a, nil
}

func (s *ArtifactStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE artifacts SET is_active = FALSE, updated_at = GREATEST(now(), created_at) WHERE id = $1 AND is_active`, id)
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
	rows, err := s.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "listing active artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArtifacts(rows)
}

func (s *ArtifactStore) List(ctx context.Context, opts store.ListOpts) ([]*store.Artifact, int64, error) {
	var (
		where strings.Builder
		args  []any
	)
	where.WriteString(` WHERE is_active`)
	if opts.Keyword != "" {
		args = append(args, likePattern(opts.Keyword))
		fmt.Fprintf(&where, ` AND (title ILIKE $%d OR content ILIKE $%d)`, len(args), len(args))
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		fmt.Fprintf(&where, ` AND category = $%d`, len(args))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "counting artifacts: %w", err)
	}

	q := `SELECT ` + artifactColumns + ` FROM artifacts` + where.String() + ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
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
	args := []any{likePattern(q.Substring)}

	var qb strings.Builder
	qb.WriteString(`SELECT ` + artifactColumns + `, (title ILIKE $1) AS title_match
FROM artifacts
WHERE is_active AND (title ILIKE $1 OR content ILIKE $1)`)
	if len(q.Categories) > 0 {
		args = append(args, pq.Array(q.Categories))
		fmt.Fprintf(&qb, ` AND category = ANY($%d)`, len(args))
	}
	if len(q.ExcludeIDs) > 0 {
		args = append(args, pq.Array(q.ExcludeIDs))
		fmt.Fprintf(&qb, ` AND NOT (id = ANY($%d))`, len(args))
	}
	qb.WriteString(` ORDER BY title_match DESC, created_at DESC, id DESC`)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&qb, ` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "keyword search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*store.KeywordMatch
	for rows.Next() {
		var titleMatch bool
		a, err := scanArtifactRow(rows, &titleMatch)
		if err != nil {
			return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "scanning keyword match: %w", err)
		}
		matches = append(matches, &store.KeywordMatch{Artifact: a, TitleMatch: titleMatch})
	}
	if err := rows.Err(); err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "iterating keyword matches: %w", err)
	}
	return matches, nil
}

func (s *ArtifactStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts WHERE is_active`).Scan(&n); err != nil {
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

func scanArtifactRow(row rowScanner, extra ...any) (*store.Artifact, error) {
	var (
		a        store.Artifact
		tags     pq.StringArray
		metaJSON []byte
		created  time.Time
		updated  time.Time
	)
	dest := []any{
		&a.ID, &a.Title, &a.Content, &a.Category, &tags, &metaJSON,
		&a.SourceType, &a.SourcePath, &a.IsActive, &created, &updated,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Tags = []string(tags)
	a.CreatedAt = created.UTC()
	a.UpdatedAt = updated.UTC()
	if len(metaJSON) > 0 && string(metaJSON) != "{}" {
		if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
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

// likePattern wraps s in % wildcards, escaping ILIKE metacharacters with the
// default backslash escape.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
