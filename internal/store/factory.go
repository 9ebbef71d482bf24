// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

import (
	"errors"
	"io"
	"sync"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// DefaultVectorDimensions matches OpenAI text-embedding-3-small.
const DefaultVectorDimensions = 1536

// VectorBackendNone disables the vector index; retrieval runs keyword-only.
const VectorBackendNone = "none"

// BackendFactory opens the relational stores for a backend.
type BackendFactory func(cfg *StorageConfig) (*Stores, error)

// VectorIndexFactory opens a vector index for a backend. dims is already
// resolved to a positive value.
type VectorIndexFactory func(cfg *StorageConfig, dims int) (VectorIndex, error)

var (
	backendFactories = map[string]BackendFactory{}
	vectorFactories  = map[string]VectorIndexFactory{}
	factoriesMu      sync.RWMutex
)

// RegisterBackend registers a relational backend. Backend packages call this
// from init(). This function is goroutine-safe.
func RegisterBackend(name string, f BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	backendFactories[name] = f
}

// RegisterVectorBackend registers a vector index backend from init().
func RegisterVectorBackend(name string, f VectorIndexFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	vectorFactories[name] = f
}

func resolveBackend(name string) string {
	if name == "" {
		return "sqlite"
	}
	return name
}

// NewStores opens the relational stores selected by cfg.Backend.
func NewStores(cfg *StorageConfig) (*Stores, error) {
	backend := resolveBackend(cfg.Backend)

	factoriesMu.RLock()
	factory, ok := backendFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, srserr.New(srserr.CodeStoreBackendUnsupported,
			"unsupported storage backend: "+backend, srserr.FieldBackend(backend))
	}
	return factory(cfg)
}

// NewVectorIndex opens the index selected by cfg.VectorBackend. It returns a
// nil index and no error when the backend is "none".
func NewVectorIndex(cfg *StorageConfig) (VectorIndex, error) {
	backend := resolveBackend(cfg.VectorBackend)
	if backend == VectorBackendNone {
		return nil, nil
	}

	factoriesMu.RLock()
	factory, ok := vectorFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, srserr.New(srserr.CodeVectorBackendUnsupported,
			"unsupported vector backend: "+backend, srserr.FieldBackend(backend))
	}

	dims := DefaultVectorDimensions
	if cfg.VectorDimensions > 0 {
		dims = cfg.VectorDimensions
	}
	return factory(cfg, dims)
}

// Stores groups the relational stores of one backend.
type Stores struct {
	Artifacts ArtifactStore
	History   HistoryStore
	closers   []io.Closer // shared resources closed after the stores
}

// NewStoresFrom composes a Stores value. Additional closers (e.g. a shared
// database handle) are closed after the stores during Close().
func NewStoresFrom(artifacts ArtifactStore, history HistoryStore, closers ...io.Closer) *Stores {
	return &Stores{Artifacts: artifacts, History: history, closers: closers}
}

func (s *Stores) Close() error {
	var errs []error
	if s.Artifacts != nil {
		if err := s.Artifacts.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.History != nil {
		if err := s.History.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, cl := range s.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
