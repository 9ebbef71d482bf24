// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server

import (
	"context"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/artifacts"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/batchimport"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// ArtifactService is the artifact write and read path.
type ArtifactService interface {
	Create(ctx context.Context, a *store.Artifact) (*store.Artifact, error)
	Get(ctx context.Context, id int64) (*store.Artifact, error)
	Update(ctx context.Context, id int64, patch store.ArtifactPatch) (*store.Artifact, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, opts artifacts.ListOpts) (*artifacts.Page, error)
}

// SearchService runs retrieval and retrieval-augmented answers.
type SearchService interface {
	Retrieve(ctx context.Context, req retrieval.Request) (*retrieval.Response, error)
	Answer(ctx context.Context, req retrieval.Request) (*retrieval.Answer, error)
}

// HistoryService reads and prunes the search log.
type HistoryService interface {
	ListRecent(ctx context.Context, limit int) ([]*store.SearchHistoryRecord, error)
	Delete(ctx context.Context, id int64) error
}

// ImportService manages bulk import tasks.
type ImportService interface {
	Submit(ctx context.Context, payload []byte) (string, error)
	Status(id string) (batchimport.Task, error)
	Cancel(id string) (bool, error)
}

// Reindexer rebuilds the vector index.
type Reindexer interface {
	ReindexAll(ctx context.Context) (int, error)
}

// SystemService reports health and usage metrics.
type SystemService interface {
	Health(ctx context.Context) HealthReport
	Metrics(ctx context.Context) (*MetricsReport, error)
}

// Services holds the dependencies of the route handlers.
type Services struct {
	artifacts ArtifactService
	search    SearchService
	history   HistoryService
	imports   ImportService
	reindexer Reindexer
	system    SystemService
}

// NewServices checks that every dependency is present.
func NewServices(a ArtifactService, search SearchService, history HistoryService, imports ImportService, reindexer Reindexer, system SystemService) (*Services, error) {
	switch {
	case a == nil:
		return nil, srserr.New(srserr.CodeServerConfigInvalid, "artifact service is required")
	case search == nil:
		return nil, srserr.New(srserr.CodeServerConfigInvalid, "search service is required")
	case history == nil:
		return nil, srserr.New(srserr.CodeServerConfigInvalid, "history service is required")
	case imports == nil:
		return nil, srserr.New(srserr.CodeServerConfigInvalid, "import service is required")
	case reindexer == nil:
		return nil, srserr.New(srserr.CodeServerConfigInvalid, "reindexer is required")
	case system == nil:
		return nil, srserr.New(srserr.CodeServerConfigInvalid, "system service is required")
	}
	return &Services{
		artifacts: a,
		search:    search,
		history:   history,
		imports:   imports,
		reindexer: reindexer,
		system:    system,
	}, nil
}
