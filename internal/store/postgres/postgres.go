// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package postgres implements the relational stores on PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func init() {
	store.RegisterBackend("postgres", newStores)
}

func newStores(cfg *store.StorageConfig) (*store.Stores, error) {
	db, err := Open(context.Background(), cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return store.NewStoresFrom(NewArtifactStore(db), NewHistoryStore(db), db), nil
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, srserr.New(srserr.CodeStoreInvalidInput, "postgres dsn is required", srserr.FieldBackend("postgres"))
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "opening postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "pinging postgres: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, srserr.Errorf(srserr.CodeStoreDatabaseFailure, "migrating postgres schema: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS artifacts (
  id          BIGSERIAL PRIMARY KEY,
  title       TEXT NOT NULL,
  content     TEXT NOT NULL,
  category    VARCHAR(64) NOT NULL DEFAULT '',
  tags        TEXT[] NOT NULL DEFAULT '{}',
  metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
  source_type VARCHAR(32) NOT NULL DEFAULT '',
  source_path TEXT NOT NULL DEFAULT '',
  is_active   BOOLEAN NOT NULL DEFAULT TRUE,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_artifacts_category ON artifacts(category);
CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);

CREATE TABLE IF NOT EXISTS search_history (
  id             BIGSERIAL PRIMARY KEY,
  query          TEXT NOT NULL,
  artifact_count INTEGER,
  response_time  DOUBLE PRECISION,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history(created_at);`
	_, err := db.ExecContext(ctx, ddl)
	return err
}
