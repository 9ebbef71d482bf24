// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/artifacts"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/pkg/health"
)

func (s *Server) registerRoutes() {
	// System endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Component health",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "metrics",
		Method:      http.MethodGet,
		Path:        "/api/v1/metrics",
		Summary:     "Usage metrics",
		Tags:        []string{"system"},
	}, s.handleMetrics)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindex",
		Method:      http.MethodPost,
		Path:        "/api/v1/reindex",
		Summary:     "Rebuild the vector index from active artifacts",
		Tags:        []string{"system"},
	}, s.handleReindex)

	// Artifact endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-artifacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts",
		Summary:     "List active artifacts",
		Tags:        []string{"artifacts"},
	}, s.handleListArtifacts)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-artifact",
		Method:        http.MethodPost,
		Path:          "/api/v1/artifacts",
		Summary:       "Create an artifact",
		Tags:          []string{"artifacts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateArtifact)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-artifact",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{id}",
		Summary:     "Get an artifact",
		Tags:        []string{"artifacts"},
	}, s.handleGetArtifact)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-artifact",
		Method:      http.MethodPut,
		Path:        "/api/v1/artifacts/{id}",
		Summary:     "Update an artifact",
		Tags:        []string{"artifacts"},
	}, s.handleUpdateArtifact)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-artifact",
		Method:      http.MethodDelete,
		Path:        "/api/v1/artifacts/{id}",
		Summary:     "Deactivate an artifact",
		Tags:        []string{"artifacts"},
	}, s.handleDeleteArtifact)

	// Search endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "retrieve",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/retrieve",
		Summary:     "Hybrid vector and keyword retrieval",
		Tags:        []string{"search"},
	}, s.handleRetrieve)

	huma.Register(s.api, huma.Operation{
		OperationID: "answer",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/answer",
		Summary:     "Answer a question from retrieved artifacts",
		Tags:        []string{"search"},
	}, s.handleAnswer)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-search-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/history",
		Summary:     "Recent searches",
		Tags:        []string{"search"},
	}, s.handleListHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-search-history",
		Method:      http.MethodDelete,
		Path:        "/api/v1/search/history/{id}",
		Summary:     "Delete a search log entry",
		Tags:        []string{"search"},
	}, s.handleDeleteHistory)

	// Import endpoints
	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-import",
		Method:        http.MethodPost,
		Path:          "/api/v1/import",
		Summary:       "Start a bulk import",
		Tags:          []string{"import"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSubmitImport)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-import",
		Method:      http.MethodGet,
		Path:        "/api/v1/import/{taskId}",
		Summary:     "Import task progress",
		Tags:        []string{"import"},
	}, s.handleGetImport)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-import",
		Method:      http.MethodPost,
		Path:        "/api/v1/import/{taskId}/cancel",
		Summary:     "Cancel a running import",
		Tags:        []string{"import"},
	}, s.handleCancelImport)
}

// --- Request/Response types for huma ---

type healthOutput struct {
	Status int
	Body   HealthReport
}

type metricsOutput struct {
	Body MetricsReport
}

type reindexOutput struct {
	Body struct {
		Indexed int `json:"indexed" doc:"Number of artifacts embedded"`
	}
}

type artifactIDInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type artifactOutput struct {
	Body ArtifactBody
}

type listArtifactsInput struct {
	Page     int    `query:"page" default:"1" minimum:"1"`
	PageSize int    `query:"page_size" default:"20" minimum:"1" maximum:"100"`
	Keyword  string `query:"keyword" doc:"Substring of title or content"`
	Category string `query:"category"`
}

type listArtifactsOutput struct {
	Body struct {
		Items    []ArtifactBody `json:"items"`
		Total    int64          `json:"total"`
		Page     int            `json:"page"`
		PageSize int            `json:"page_size"`
	}
}

type createArtifactInput struct {
	Body struct {
		Title      string         `json:"title" minLength:"1" maxLength:"500"`
		Content    string         `json:"content" minLength:"1"`
		Category   string         `json:"category,omitempty" maxLength:"100"`
		Tags       []string       `json:"tags,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
		SourceType string         `json:"source_type,omitempty" maxLength:"50"`
		SourcePath string         `json:"source_path,omitempty" maxLength:"1000"`
	}
}

type updateArtifactInput struct {
	ID   int64 `path:"id" minimum:"1"`
	Body struct {
		Title      *string        `json:"title,omitempty"`
		Content    *string        `json:"content,omitempty"`
		Category   *string        `json:"category,omitempty"`
		Tags       []string       `json:"tags,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
		SourceType *string        `json:"source_type,omitempty"`
		SourcePath *string        `json:"source_path,omitempty"`
		IsActive   *bool          `json:"is_active,omitempty"`
	}
}

type searchInput struct {
	Body SearchRequestBody
}

type retrieveOutput struct {
	Body struct {
		Query          string               `json:"query"`
		Artifacts      []ScoredArtifactBody `json:"artifacts"`
		TotalCount     int                  `json:"total_count"`
		ResponseTime   float64              `json:"response_time" doc:"Seconds"`
		VectorDegraded bool                 `json:"vector_degraded,omitempty" doc:"Vector search was skipped or failed"`
	}
}

type answerOutput struct {
	Body struct {
		Query        string               `json:"query"`
		Answer       string               `json:"answer"`
		Sources      []ScoredArtifactBody `json:"sources"`
		ResponseTime float64              `json:"response_time" doc:"Seconds"`
	}
}

type listHistoryInput struct {
	Limit int `query:"limit" default:"10" minimum:"1" maximum:"100"`
}

type listHistoryOutput struct {
	Body struct {
		Items []HistoryBody `json:"items"`
	}
}

type historyIDInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type submitImportInput struct {
	Body struct {
		Records any `json:"records" doc:"Array of artifact records; rejected as a whole if any record is invalid"`
	}
}

type submitImportOutput struct {
	Body struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
}

type taskIDInput struct {
	TaskID string `path:"taskId"`
}

type taskOutput struct {
	Body TaskBody
}

type cancelImportOutput struct {
	Body struct {
		Cancelled bool `json:"cancelled" doc:"False when the task had already finished"`
	}
}

// --- Handlers ---

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	report := s.services.system.Health(ctx)
	out := &healthOutput{Status: http.StatusOK, Body: report}
	if report.Components["database"].Status != health.StatusHealthy {
		out.Status = http.StatusServiceUnavailable
	}
	return out, nil
}

func (s *Server) handleMetrics(ctx context.Context, _ *struct{}) (*metricsOutput, error) {
	m, err := s.services.system.Metrics(ctx)
	if err != nil {
		return nil, apiError(err, "collecting metrics")
	}
	return &metricsOutput{Body: *m}, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *struct{}) (*reindexOutput, error) {
	n, err := s.services.reindexer.ReindexAll(ctx)
	if err != nil {
		return nil, apiError(err, "reindexing")
	}
	out := &reindexOutput{}
	out.Body.Indexed = n
	return out, nil
}

func (s *Server) handleListArtifacts(ctx context.Context, input *listArtifactsInput) (*listArtifactsOutput, error) {
	page, err := s.services.artifacts.List(ctx, artifacts.ListOpts{
		Page:     input.Page,
		PageSize: input.PageSize,
		Keyword:  strings.TrimSpace(input.Keyword),
		Category: input.Category,
	})
	if err != nil {
		return nil, apiError(err, "listing artifacts")
	}
	out := &listArtifactsOutput{}
	out.Body.Items = make([]ArtifactBody, 0, len(page.Items))
	for _, a := range page.Items {
		out.Body.Items = append(out.Body.Items, toArtifactBody(a))
	}
	out.Body.Total = page.Total
	out.Body.Page = page.Page
	out.Body.PageSize = page.PageSize
	return out, nil
}

func (s *Server) handleCreateArtifact(ctx context.Context, input *createArtifactInput) (*artifactOutput, error) {
	md, err := parseMetadata(input.Body.Metadata)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid metadata", err)
	}
	a, err := s.services.artifacts.Create(ctx, &store.Artifact{
		Title:      input.Body.Title,
		Content:    input.Body.Content,
		Category:   input.Body.Category,
		Tags:       input.Body.Tags,
		Metadata:   md,
		SourceType: input.Body.SourceType,
		SourcePath: input.Body.SourcePath,
	})
	if err != nil {
		return nil, apiError(err, "creating artifact")
	}
	return &artifactOutput{Body: toArtifactBody(a)}, nil
}

func (s *Server) handleGetArtifact(ctx context.Context, input *artifactIDInput) (*artifactOutput, error) {
	a, err := s.services.artifacts.Get(ctx, input.ID)
	if err != nil {
		return nil, apiError(err, "artifact not available")
	}
	return &artifactOutput{Body: toArtifactBody(a)}, nil
}

func (s *Server) handleUpdateArtifact(ctx context.Context, input *updateArtifactInput) (*artifactOutput, error) {
	b := input.Body
	patch := store.ArtifactPatch{
		Title:      b.Title,
		Content:    b.Content,
		Category:   b.Category,
		SourceType: b.SourceType,
		SourcePath: b.SourcePath,
		IsActive:   b.IsActive,
	}
	if b.Tags != nil {
		tags := b.Tags
		patch.Tags = &tags
	}
	if b.Metadata != nil {
		md, err := parseMetadata(b.Metadata)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid metadata", err)
		}
		patch.Metadata = &md
	}
	a, err := s.services.artifacts.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, apiError(err, "updating artifact")
	}
	return &artifactOutput{Body: toArtifactBody(a)}, nil
}

func (s *Server) handleDeleteArtifact(ctx context.Context, input *artifactIDInput) (*struct{}, error) {
	if err := s.services.artifacts.Delete(ctx, input.ID); err != nil {
		return nil, apiError(err, "deleting artifact")
	}
	return nil, nil
}

func (s *Server) handleRetrieve(ctx context.Context, input *searchInput) (*retrieveOutput, error) {
	resp, err := s.services.search.Retrieve(ctx, input.Body.request())
	if err != nil {
		return nil, apiError(err, "search failed")
	}
	out := &retrieveOutput{}
	out.Body.Query = resp.Query
	out.Body.Artifacts = toScoredBodies(resp.Artifacts)
	out.Body.TotalCount = resp.TotalCount
	out.Body.ResponseTime = resp.ResponseTime
	out.Body.VectorDegraded = resp.VectorDegraded
	return out, nil
}

func (s *Server) handleAnswer(ctx context.Context, input *searchInput) (*answerOutput, error) {
	ans, err := s.services.search.Answer(ctx, input.Body.request())
	if err != nil {
		return nil, apiError(err, "answer failed")
	}
	out := &answerOutput{}
	out.Body.Query = ans.Query
	out.Body.Answer = ans.Text
	out.Body.Sources = toScoredBodies(ans.Sources)
	out.Body.ResponseTime = ans.ResponseTime
	return out, nil
}

func (s *Server) handleListHistory(ctx context.Context, input *listHistoryInput) (*listHistoryOutput, error) {
	recs, err := s.services.history.ListRecent(ctx, input.Limit)
	if err != nil {
		return nil, apiError(err, "listing search history")
	}
	out := &listHistoryOutput{}
	out.Body.Items = make([]HistoryBody, 0, len(recs))
	for _, r := range recs {
		out.Body.Items = append(out.Body.Items, HistoryBody{
			ID:           r.ID,
			Query:        r.Query,
			ResultCount:  r.ResultCount,
			ResponseTime: r.ResponseTime,
			CreatedAt:    r.CreatedAt.UTC().Truncate(time.Millisecond),
		})
	}
	return out, nil
}

func (s *Server) handleDeleteHistory(ctx context.Context, input *historyIDInput) (*struct{}, error) {
	if err := s.services.history.Delete(ctx, input.ID); err != nil {
		return nil, apiError(err, "deleting search history")
	}
	return nil, nil
}

func (s *Server) handleSubmitImport(ctx context.Context, input *submitImportInput) (*submitImportOutput, error) {
	payload, err := json.Marshal(input.Body.Records)
	if err != nil {
		return nil, huma.Error400BadRequest("records are not valid JSON", err)
	}
	id, err := s.services.imports.Submit(ctx, payload)
	if err != nil {
		return nil, apiError(err, "import rejected")
	}
	out := &submitImportOutput{}
	out.Body.TaskID = id
	out.Body.Status = "processing"
	return out, nil
}

func (s *Server) handleGetImport(_ context.Context, input *taskIDInput) (*taskOutput, error) {
	t, err := s.services.imports.Status(input.TaskID)
	if err != nil {
		return nil, apiError(err, "import task not available")
	}
	return &taskOutput{Body: toTaskBody(t)}, nil
}

func (s *Server) handleCancelImport(_ context.Context, input *taskIDInput) (*cancelImportOutput, error) {
	ok, err := s.services.imports.Cancel(input.TaskID)
	if err != nil {
		return nil, apiError(err, "cancelling import")
	}
	out := &cancelImportOutput{}
	out.Body.Cancelled = ok
	return out, nil
}
