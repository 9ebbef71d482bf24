// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	artifactsDBName = "srs.db"
	vectorsDBName   = "vectors.db"
)

func init() {
	store.RegisterBackend("sqlite", newStores)
	store.RegisterVectorBackend("sqlite", newVectorIndex)
}

func newStores(cfg *store.StorageConfig) (*store.Stores, error) {
	dir, err := dataDir(cfg)
	if err != nil {
		return nil, err
	}

	// Artifacts and search history share one connection to avoid WAL
	// contention between two handles on the same file.
	db, err := openDB(filepath.Join(dir, artifactsDBName))
	if err != nil {
		return nil, err
	}

	artifacts, err := NewArtifactStoreWithDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store.NewStoresFrom(artifacts, NewHistoryStoreWithDB(db), db), nil
}

func newVectorIndex(cfg *store.StorageConfig, dims int) (store.VectorIndex, error) {
	dir, err := dataDir(cfg)
	if err != nil {
		return nil, err
	}
	return NewVectorIndex(filepath.Join(dir, vectorsDBName), dims)
}

func dataDir(cfg *store.StorageConfig) (string, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", srserr.Errorf(srserr.CodeStoreDatabaseFailure, "creating data dir %s: %w", dir, err)
	}
	return dir, nil
}
