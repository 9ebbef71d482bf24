// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package artifacts is the write path for artifacts: every change is
// committed to the store first and then handed to the vector sync hooks,
// whose outcome never affects the caller.
package artifacts

import (
	"context"
	"log/slog"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/vectorsync"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SyncHooks receives committed changes. Implementations must not block on
// the sync itself.
type SyncHooks interface {
	SyncOnCreate(ctx context.Context, a *store.Artifact) <-chan vectorsync.Result
	SyncOnUpdate(ctx context.Context, a *store.Artifact) <-chan vectorsync.Result
	SyncOnDelete(ctx context.Context, id int64) <-chan vectorsync.Result
}

// Page is one page of a listing.
type Page struct {
	Items    []*store.Artifact
	Total    int64
	Page     int
	PageSize int
}

// ListOpts selects a page. Page is 1-based.
type ListOpts struct {
	Page     int
	PageSize int
	Keyword  string
	Category string
}

type Service struct {
	store  store.ArtifactStore
	hooks  SyncHooks
	logger *slog.Logger
}

// NewService wires the store to the hooks. hooks may be nil, in which case
// no vector sync is scheduled.
func NewService(s store.ArtifactStore, hooks SyncHooks, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, hooks: hooks, logger: logger}
}

func (s *Service) Create(ctx context.Context, a *store.Artifact) (*store.Artifact, error) {
	if _, err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("artifact created", "artifact_id", a.ID)
	if s.hooks != nil {
		s.hooks.SyncOnCreate(ctx, a)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*store.Artifact, error) {
	return s.store.Get(ctx, id)
}

// Update applies patch. The vector entry is refreshed only when the patch
// changes indexed fields, and removed when the artifact is deactivated.
func (s *Service) Update(ctx context.Context, id int64, patch store.ArtifactPatch) (*store.Artifact, error) {
	a, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("artifact updated", "artifact_id", id)
	if s.hooks == nil {
		return a, nil
	}

	switch {
	case !a.IsActive:
		s.hooks.SyncOnDelete(ctx, id)
	case patch.TouchesEmbedding() || patch.Reactivates():
		s.hooks.SyncOnUpdate(ctx, a)
	}
	return a, nil
}

// Delete soft-deletes the artifact and schedules removal of its vector.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("artifact deleted", "artifact_id", id)
	if s.hooks != nil {
		s.hooks.SyncOnDelete(ctx, id)
	}
	return nil
}

func (s *Service) List(ctx context.Context, opts ListOpts) (*Page, error) {
	page := max(opts.Page, 1)
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)

	items, total, err := s.store.List(ctx, store.ListOpts{
		Limit:    size,
		Offset:   (page - 1) * size,
		Keyword:  opts.Keyword,
		Category: opts.Category,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// CountActive returns the number of live artifacts.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.store.CountActive(ctx)
}
