// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package vectorsync keeps the vector index consistent with the artifact
// store. Single-item operations never fail the caller: they log and report
// a boolean. The bulk path is all-or-nothing per call.
package vectorsync

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/observability"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	DefaultBatchSize   = 10
	defaultConcurrency = 2
)

// ArtifactLister is the slice of the artifact store needed for a rebuild.
type ArtifactLister interface {
	ListActive(ctx context.Context) ([]*store.Artifact, error)
}

// Config tunes a Service. Zero values select defaults.
type Config struct {
	// BatchSize bounds the number of texts per embedding request.
	BatchSize int
	// Concurrency bounds in-flight embedding requests during BatchSync.
	Concurrency int
	Logger      *slog.Logger
}

// Service mediates between the artifact store and the vector index. A nil
// index or embedder turns every operation into a logged failure.
type Service struct {
	artifacts   ArtifactLister
	index       store.VectorIndex
	embedder    provider.Embedder
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

func NewService(artifacts ArtifactLister, index store.VectorIndex, embedder provider.Embedder, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		artifacts:   artifacts,
		index:       index,
		embedder:    embedder,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Available reports whether both the index and the embedder are configured.
func (s *Service) Available() bool {
	return s.index != nil && s.embedder != nil
}

// Index returns the underlying vector index, which may be nil.
func (s *Service) Index() store.VectorIndex { return s.index }

// Sync embeds title and content and upserts the entry for id, replacing any
// previous one. Text that is empty after trimming has nothing to index and
// counts as success.
func (s *Service) Sync(ctx context.Context, id int64, title, content, category string) bool {
	ctx, span := observability.StartSpan(ctx, "vectorsync.sync", attribute.Int64("artifact.id", id))
	defer span.End()

	ok := s.sync(ctx, id, title, content, category)
	observability.RecordOutcome(span, ok, "vector sync failed")
	return ok
}

func (s *Service) sync(ctx context.Context, id int64, title, content, category string) bool {
	if !s.Available() {
		s.logger.Warn("vector index unavailable, skipping sync", "artifact_id", id)
		return false
	}

	text := store.EmbeddingText(title, content)
	if text == "" {
		s.logger.Warn("artifact has no text, skipping embedding", "artifact_id", id)
		return true
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Error("embedding artifact failed", "artifact_id", id, "error", err)
		return false
	}

	entry := store.VectorEntry{
		ID:        id,
		Embedding: vec,
		Metadata:  store.VectorMetadata{Category: category, Source: store.VectorSourceArtifact},
	}
	if err := s.index.Upsert(ctx, entry); err != nil {
		s.logger.Error("upserting artifact vector failed", "artifact_id", id, "error", err)
		return false
	}

	s.logger.Debug("artifact synced to vector index", "artifact_id", id)
	return true
}

// SyncArtifact is Sync for a loaded artifact.
func (s *Service) SyncArtifact(ctx context.Context, a *store.Artifact) bool {
	return s.Sync(ctx, a.ID, a.Title, a.Content, a.Category)
}

// Remove deletes the entry for id. A missing entry is not an error.
func (s *Service) Remove(ctx context.Context, id int64) bool {
	ctx, span := observability.StartSpan(ctx, "vectorsync.remove", attribute.Int64("artifact.id", id))
	defer span.End()

	if s.index == nil {
		s.logger.Warn("vector index unavailable, skipping removal", "artifact_id", id)
		observability.RecordOutcome(span, false, "vector index unavailable")
		return false
	}
	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.Error("removing artifact vector failed", "artifact_id", id, "error", err)
		observability.RecordError(span, err)
		return false
	}
	s.logger.Debug("artifact removed from vector index", "artifact_id", id)
	return true
}

// BatchSync embeds every artifact with non-empty text and writes them in one
// bulk upsert. Any embedding failure aborts the call before anything is
// written.
func (s *Service) BatchSync(ctx context.Context, artifacts []*store.Artifact) bool {
	ctx, span := observability.StartSpan(ctx, "vectorsync.batch_sync", attribute.Int("artifact.count", len(artifacts)))
	defer span.End()

	err := s.batchSync(ctx, artifacts)
	if err != nil {
		s.logger.Error("batch vector sync failed", "artifacts", len(artifacts), "error", err)
		observability.RecordError(span, err)
		return false
	}
	return true
}

func (s *Service) batchSync(ctx context.Context, artifacts []*store.Artifact) error {
	if !s.Available() {
		return srserr.New(srserr.CodeVectorIndexUnavailable, "vector index or embedder not configured")
	}

	entries := make([]store.VectorEntry, 0, len(artifacts))
	texts := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		text := a.EmbeddingText()
		if text == "" {
			s.logger.Warn("artifact has no text, skipping embedding", "artifact_id", a.ID)
			continue
		}
		entries = append(entries, store.VectorEntry{
			ID:       a.ID,
			Metadata: store.VectorMetadata{Category: a.Category, Source: store.VectorSourceArtifact},
		})
		texts = append(texts, text)
	}
	if len(entries) == 0 {
		s.logger.Info("no artifacts to sync")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := s.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return srserr.Wrapf(err, srserr.CodeSyncEmbeddingFailure, "embedding artifacts %d..%d", start, end-1)
			}
			if len(vecs) != end-start {
				return srserr.Errorf(srserr.CodeSyncEmbeddingFailure,
					"embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			for i, v := range vecs {
				entries[start+i].Embedding = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.index.UpsertBatch(ctx, entries); err != nil {
		return srserr.Wrapf(err, srserr.CodeSyncBatchFailure, "upserting %d vectors", len(entries))
	}
	s.logger.Info("batch synced artifacts to vector index", "count", len(entries))
	return nil
}

// ReindexAll clears the index and rebuilds it from every active artifact.
// Vector search returns nothing until the rebuild finishes. It returns the
// number of artifacts read from the store.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "vectorsync.reindex")
	defer span.End()

	n, err := s.reindexAll(ctx)
	span.SetAttributes(attribute.Int("artifact.count", n))
	if err != nil {
		observability.RecordError(span, err)
		s.logger.Error("reindex failed", "error", err)
		return 0, err
	}
	s.logger.Info("reindex complete", "count", n)
	return n, nil
}

func (s *Service) reindexAll(ctx context.Context) (int, error) {
	if !s.Available() {
		return 0, srserr.New(srserr.CodeVectorIndexUnavailable, "vector index or embedder not configured")
	}
	if err := s.index.Clear(ctx); err != nil {
		return 0, srserr.Wrapf(err, srserr.CodeVectorIndexFailure, "clearing vector index")
	}

	artifacts, err := s.artifacts.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("reindexing artifacts", "count", len(artifacts))

	if err := s.batchSync(ctx, artifacts); err != nil {
		return 0, err
	}
	return len(artifacts), nil
}
