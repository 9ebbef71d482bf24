// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package memory provides process-local implementations of the store
// interfaces. Nothing survives a restart; the backend suits tests, demos and
// single-shot CLI runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func init() {
	store.RegisterBackend("memory", func(_ *store.StorageConfig) (*store.Stores, error) {
		return store.NewStoresFrom(NewArtifactStore(), NewHistoryStore()), nil
	})
	store.RegisterVectorBackend("memory", func(_ *store.StorageConfig, dims int) (store.VectorIndex, error) {
		return NewVectorIndex(dims)
	})
}

// ArtifactStore keeps artifacts in a map guarded by a mutex. Returned
// artifacts are copies.
type ArtifactStore struct {
	mu     sync.RWMutex
	rows   map[int64]*store.Artifact
	nextID int64
	now    func() time.Time
}

var _ store.ArtifactStore = (*ArtifactStore)(nil)

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{rows: make(map[int64]*store.Artifact), now: time.Now}
}

// SetNowFunc overrides the clock (for testing).
func (s *ArtifactStore) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	s.now = fn
	s.mu.Unlock()
}

func (s *ArtifactStore) Create(_ context.Context, a *store.Artifact) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now().UTC()
	a.ID = s.nextID
	a.Tags = store.NormalizeTags(a.Tags)
	a.IsActive = true
	a.CreatedAt = now
	a.UpdatedAt = now
	s.rows[a.ID] = clone(a)
	return a.ID, nil
}

func (s *ArtifactStore) Get(_ context.Context, id int64) (*store.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.rows[id]
	if !ok || !a.IsActive {
		return nil, srserr.Errorf(srserr.CodeStoreArtifactGetNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	return clone(a), nil
}

func (s *ArtifactStore) Update(_ context.Context, id int64, patch store.ArtifactPatch) (*store.Artifact, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rows[id]
	if !ok || (!cur.IsActive && !patch.Reactivates()) {
		return nil, srserr.Errorf(srserr.CodeStoreArtifactUpdateNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	a := clone(cur)
	patch.Apply(a)
	a.Tags = store.NormalizeTags(a.Tags)
	a.UpdatedAt = later(s.now().UTC(), a.CreatedAt)
	s.rows[id] = a
	return clone(a), nil
}

func (s *ArtifactStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok || !a.IsActive {
		return srserr.Errorf(srserr.CodeStoreArtifactDeleteNotFound, "artifact %d: %w", id, store.ErrNotFound)
	}
	a.IsActive = false
	a.UpdatedAt = later(s.now().UTC(), a.CreatedAt)
	return nil
}

func (s *ArtifactStore) ListActive(_ context.Context) ([]*store.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Artifact, 0, len(s.rows))
	for _, a := range s.rows {
		if a.IsActive {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ArtifactStore) List(_ context.Context, opts store.ListOpts) ([]*store.Artifact, int64, error) {
	s.mu.RLock()
	var matched []*store.Artifact
	for _, a := range s.rows {
		if !a.IsActive {
			continue
		}
		if opts.Category != "" && a.Category != opts.Category {
			continue
		}
		if opts.Keyword != "" && !containsFold(a.Title, opts.Keyword) && !containsFold(a.Content, opts.Keyword) {
			continue
		}
		matched = append(matched, clone(a))
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	total := int64(len(matched))

	start := min(max(opts.Offset, 0), len(matched))
	end := len(matched)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, end)
	}
	return matched[start:end], total, nil
}

func (s *ArtifactStore) SearchKeyword(_ context.Context, q store.KeywordQuery) ([]*store.KeywordMatch, error) {
	exclude := make(map[int64]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		exclude[id] = true
	}
	categories := make(map[string]bool, len(q.Categories))
	for _, c := range q.Categories {
		categories[c] = true
	}

	s.mu.RLock()
	var titled, content []*store.Artifact
	for _, a := range s.rows {
		if !a.IsActive || exclude[a.ID] {
			continue
		}
		if len(categories) > 0 && !categories[a.Category] {
			continue
		}
		switch {
		case containsFold(a.Title, q.Substring):
			titled = append(titled, clone(a))
		case containsFold(a.Content, q.Substring):
			content = append(content, clone(a))
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(titled)
	sortNewestFirst(content)

	matches := make([]*store.KeywordMatch, 0, len(titled)+len(content))
	for _, a := range titled {
		matches = append(matches, &store.KeywordMatch{Artifact: a, TitleMatch: true})
	}
	for _, a := range content {
		matches = append(matches, &store.KeywordMatch{Artifact: a})
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (s *ArtifactStore) CountActive(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.rows {
		if a.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *ArtifactStore) Ping(context.Context) error { return nil }
func (s *ArtifactStore) Close() error               { return nil }

// HistoryStore is an in-memory search log.
type HistoryStore struct {
	mu     sync.Mutex
	rows   []*store.SearchHistoryRecord
	nextID int64
	now    func() time.Time
}

var _ store.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{now: time.Now}
}

func (h *HistoryStore) Begin(_ context.Context, query string) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.rows = append(h.rows, &store.SearchHistoryRecord{ID: h.nextID, Query: query, CreatedAt: h.now().UTC()})
	return h.nextID, nil
}

func (h *HistoryStore) Complete(_ context.Context, id int64, resultCount int, responseTime float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.rows {
		if r.ID == id {
			r.ResultCount = resultCount
			r.ResponseTime = responseTime
			return nil
		}
	}
	return srserr.Errorf(srserr.CodeStoreHistoryGetNotFound, "search history %d: %w", id, store.ErrNotFound)
}

func (h *HistoryStore) Record(_ context.Context, rec *store.SearchHistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	rec.ID = h.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = h.now().UTC()
	}
	cp := *rec
	h.rows = append(h.rows, &cp)
	return nil
}

func (h *HistoryStore) ListRecent(_ context.Context, limit int) ([]*store.SearchHistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*store.SearchHistoryRecord, 0, min(limit, len(h.rows)))
	for i := len(h.rows) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *h.rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (h *HistoryStore) Delete(_ context.Context, id int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, r := range h.rows {
		if r.ID == id {
			h.rows = append(h.rows[:i], h.rows[i+1:]...)
			return nil
		}
	}
	return srserr.Errorf(srserr.CodeStoreHistoryGetNotFound, "search history %d: %w", id, store.ErrNotFound)
}

func (h *HistoryStore) Stats(_ context.Context) (store.HistoryStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := store.HistoryStats{TotalSearches: int64(len(h.rows))}
	var sum float64
	var n int
	for _, r := range h.rows {
		if r.ResponseTime >= 0 {
			sum += r.ResponseTime
			n++
		}
	}
	if n > 0 {
		stats.AvgResponseTime = sum / float64(n)
	}
	return stats, nil
}

func (h *HistoryStore) Close() error { return nil }

func clone(a *store.Artifact) *store.Artifact {
	cp := *a
	cp.Tags = append([]string(nil), a.Tags...)
	if a.Metadata.Extra != nil {
		cp.Metadata.Extra = make(map[string]any, len(a.Metadata.Extra))
		for k, v := range a.Metadata.Extra {
			cp.Metadata.Extra[k] = v
		}
	}
	return &cp
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortNewestFirst(as []*store.Artifact) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].CreatedAt.After(as[j].CreatedAt)
		}
		return as[i].ID > as[j].ID
	})
}

func later(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
