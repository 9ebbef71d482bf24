// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package retrieval implements hybrid search: nearest-neighbor lookup in the
// vector index, filled up with ranked keyword matches from the artifact
// store when the vector side returns too little.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/observability"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	DefaultTopK              = 5
	DefaultThreshold         = 0.7
	DefaultTitleSimilarity   = 0.7
	DefaultContentSimilarity = 0.5

	// failedResponseTime marks a search that errored in the history log.
	failedResponseTime = -1

	categoryOverfetch = 4
	maxVectorK        = 1000
)

// MatchSource says how a result was found.
type MatchSource string

const (
	SourceVector         MatchSource = "vector"
	SourceKeywordTitle   MatchSource = "keyword_title"
	SourceKeywordContent MatchSource = "keyword_content"
)

// Request is one retrieval. Threshold nil selects the engine default.
type Request struct {
	Query      string
	TopK       int
	Threshold  *float64
	Categories []string
}

// Validate checks caller-supplied bounds.
func (r Request) Validate() error {
	if r.TopK < 0 {
		return srserr.Errorf(srserr.CodeRetrievalQueryInvalid, "top_k must not be negative, got %d", r.TopK)
	}
	if r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 1) {
		return srserr.Errorf(srserr.CodeRetrievalQueryInvalid, "threshold must be within [0, 1], got %g", *r.Threshold)
	}
	return nil
}

// ScoredArtifact is a result with its similarity in (0, 1].
type ScoredArtifact struct {
	Artifact   *store.Artifact
	Similarity float64
	Source     MatchSource
}

// Response is the ranked result of Retrieve. ResponseTime is in seconds.
type Response struct {
	Query        string
	Artifacts    []ScoredArtifact
	TotalCount   int
	ResponseTime float64
	// VectorDegraded is set when the vector path was skipped or failed and
	// the results come from keyword matching alone.
	VectorDegraded bool
}

// ArtifactReader is the slice of the artifact store retrieval reads from.
type ArtifactReader interface {
	Get(ctx context.Context, id int64) (*store.Artifact, error)
	SearchKeyword(ctx context.Context, q store.KeywordQuery) ([]*store.KeywordMatch, error)
}

// HistoryWriter records searches.
type HistoryWriter interface {
	Begin(ctx context.Context, query string) (int64, error)
	Complete(ctx context.Context, id int64, resultCount int, responseTime float64) error
	Record(ctx context.Context, rec *store.SearchHistoryRecord) error
}

// Config tunes an Engine. Zero values select defaults.
type Config struct {
	TopK              int
	Threshold         *float64
	TitleSimilarity   float64
	ContentSimilarity float64
	Logger            *slog.Logger
}

// Engine runs hybrid retrieval. A nil index or embedder runs keyword-only.
type Engine struct {
	artifacts ArtifactReader
	history   HistoryWriter
	index     store.VectorIndex
	embedder  provider.Embedder
	completer provider.Completer

	topK              int
	threshold         float64
	titleSimilarity   float64
	contentSimilarity float64
	logger            *slog.Logger
	now               func() time.Time
}

// Deps are the collaborators of an Engine. Index, Embedder and Completer may
// be nil.
type Deps struct {
	Artifacts ArtifactReader
	History   HistoryWriter
	Index     store.VectorIndex
	Embedder  provider.Embedder
	Completer provider.Completer
}

func NewEngine(deps Deps, cfg Config) *Engine {
	e := &Engine{
		artifacts:         deps.Artifacts,
		history:           deps.History,
		index:             deps.Index,
		embedder:          deps.Embedder,
		completer:         deps.Completer,
		topK:              cfg.TopK,
		threshold:         DefaultThreshold,
		titleSimilarity:   cfg.TitleSimilarity,
		contentSimilarity: cfg.ContentSimilarity,
		logger:            cfg.Logger,
		now:               time.Now,
	}
	if e.topK <= 0 {
		e.topK = DefaultTopK
	}
	if cfg.Threshold != nil {
		e.threshold = *cfg.Threshold
	}
	if e.titleSimilarity <= 0 {
		e.titleSimilarity = DefaultTitleSimilarity
	}
	if e.contentSimilarity <= 0 {
		e.contentSimilarity = DefaultContentSimilarity
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// SetNowFunc overrides the clock used for response times (for testing).
func (e *Engine) SetNowFunc(fn func() time.Time) { e.now = fn }

// VectorAvailable reports whether the vector path will be attempted.
func (e *Engine) VectorAvailable() bool {
	return e.index != nil && e.embedder != nil && provider.IsAvailable(e.embedder)
}

// Similarity maps an L2 distance to a score in (0, 1].
func Similarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// Retrieve runs one hybrid search and logs it to the search history. A
// failure is still logged, with a negative response time, before it is
// returned.
func (e *Engine) Retrieve(ctx context.Context, req Request) (*Response, error) {
	topK, threshold := e.resolve(req)
	ctx, span := observability.StartRetrieveSpan(ctx, topK, threshold, req.Categories)
	defer span.End()

	historyID, err := e.history.Begin(ctx, req.Query)
	if err != nil {
		e.logger.Warn("recording search history failed", "error", err)
		historyID = 0
	}

	start := e.now()
	resp, stats, err := e.search(ctx, req.Query, topK, threshold, req.Categories)
	elapsed := e.now().Sub(start).Seconds()

	if err != nil {
		observability.RecordError(span, err)
		e.finishHistory(ctx, historyID, req.Query, 0, failedResponseTime)
		return nil, srserr.Wrap(err, srserr.CodeRetrievalSearchFailure, "retrieving artifacts")
	}

	resp.ResponseTime = elapsed
	observability.RecordRetrieveResult(span, stats.vector, stats.keyword, resp.TotalCount)
	e.finishHistory(ctx, historyID, req.Query, resp.TotalCount, elapsed)
	return resp, nil
}

func (e *Engine) resolve(req Request) (int, float64) {
	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}
	threshold := e.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	return topK, threshold
}

// finishHistory completes the stub written by Begin, or writes a full record
// when no stub exists. History is best-effort and never fails a search.
func (e *Engine) finishHistory(ctx context.Context, id int64, query string, count int, responseTime float64) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if id > 0 {
		err = e.history.Complete(ctx, id, count, responseTime)
	}
	if id <= 0 || srserr.IsNotFound(err) {
		err = e.history.Record(ctx, &store.SearchHistoryRecord{
			Query:        query,
			ResultCount:  count,
			ResponseTime: responseTime,
		})
	}
	if err != nil {
		e.logger.Warn("recording search history failed", "error", err)
	}
}

type searchStats struct {
	vector  int
	keyword int
}

func (e *Engine) search(ctx context.Context, query string, topK int, threshold float64, categories []string) (*Response, searchStats, error) {
	var stats searchStats
	resp := &Response{Query: query}
	seen := make(map[int64]bool)

	var results []ScoredArtifact
	if e.VectorAvailable() && strings.TrimSpace(query) != "" {
		hits, err := e.vectorSearch(ctx, query, topK, threshold, categories)
		switch {
		case err == nil:
			for _, h := range hits {
				seen[h.Artifact.ID] = true
			}
			results = append(results, hits...)
		case srserr.HasCode(err, srserr.CodeStoreDatabaseFailure):
			return nil, stats, err
		default:
			e.logger.Warn("vector search failed, falling back to keyword search", "error", err)
			resp.VectorDegraded = true
		}
	} else {
		resp.VectorDegraded = true
	}
	stats.vector = len(results)

	if len(results) < topK {
		fill, err := e.keywordSearch(ctx, query, topK-len(results), threshold, categories, seen)
		if err != nil {
			return nil, stats, err
		}
		stats.keyword = len(fill)
		results = append(results, fill...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}

	resp.Artifacts = results
	resp.TotalCount = len(results)
	return resp, stats, nil
}

func (e *Engine) vectorSearch(ctx context.Context, query string, topK int, threshold float64, categories []string) ([]ScoredArtifact, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	k := topK
	if len(categories) > 0 {
		k = min(topK*categoryOverfetch, maxVectorK)
	}
	hits, err := e.index.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	allowed := categorySet(categories)
	var out []ScoredArtifact
	for _, h := range hits {
		if len(out) >= topK {
			break
		}
		sim := Similarity(h.Distance)
		if sim < threshold {
			continue
		}
		if allowed != nil && !allowed[h.Metadata.Category] {
			continue
		}

		a, err := e.artifacts.Get(ctx, h.ID)
		if srserr.IsNotFound(err) {
			e.logger.Debug("dropping orphaned vector hit", "artifact_id", h.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if allowed != nil && !allowed[a.Category] {
			continue
		}
		out = append(out, ScoredArtifact{Artifact: a, Similarity: sim, Source: SourceVector})
	}
	return out, nil
}

func (e *Engine) keywordSearch(ctx context.Context, query string, limit int, threshold float64, categories []string, seen map[int64]bool) ([]ScoredArtifact, error) {
	exclude := make([]int64, 0, len(seen))
	for id := range seen {
		exclude = append(exclude, id)
	}
	sort.Slice(exclude, func(i, j int) bool { return exclude[i] < exclude[j] })

	matches, err := e.artifacts.SearchKeyword(ctx, store.KeywordQuery{
		Substring:  query,
		Categories: categories,
		Limit:      limit,
		ExcludeIDs: exclude,
	})
	if err != nil {
		return nil, err
	}

	var out []ScoredArtifact
	for _, m := range matches {
		if seen[m.Artifact.ID] {
			continue
		}
		sa := ScoredArtifact{Artifact: m.Artifact, Similarity: e.contentSimilarity, Source: SourceKeywordContent}
		if m.TitleMatch {
			sa.Similarity = e.titleSimilarity
			sa.Source = SourceKeywordTitle
		}
		if sa.Similarity < threshold {
			continue
		}
		seen[m.Artifact.ID] = true
		out = append(out, sa)
	}
	return out, nil
}

func categorySet(categories []string) map[string]bool {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return set
}
