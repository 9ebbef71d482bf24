// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listArtifactsBody struct {
	Items    []server.ArtifactBody `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type retrieveBody struct {
	Query          string                      `json:"query"`
	Artifacts      []server.ScoredArtifactBody `json:"artifacts"`
	TotalCount     int                         `json:"total_count"`
	ResponseTime   float64                     `json:"response_time"`
	VectorDegraded bool                        `json:"vector_degraded"`
}

func createArtifact(t *testing.T, st *stack, title, content, category string) server.ArtifactBody {
	t.Helper()
	w := st.do(t, http.MethodPost, "/api/v1/artifacts", map[string]any{
		"title":    title,
		"content":  content,
		"category": category,
		"metadata": map[string]any{"author": "ops", "reviewed": true},
	})
	requireStatus(t, w, http.StatusCreated)
	return decode[server.ArtifactBody](t, w)
}

func TestArtifactRoutes_Lifecycle(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	created := createArtifact(t, st, "Rotate TLS certificates", "Run certbot renew weekly.", "ops")
	require.NotZero(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, "ops", created.Metadata["author"])
	assert.Equal(t, true, created.Metadata["reviewed"])
	assert.Equal(t, []string{}, created.Tags)

	path := fmt.Sprintf("/api/v1/artifacts/%d", created.ID)
	w := st.do(t, http.MethodGet, path, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Rotate TLS certificates", decode[server.ArtifactBody](t, w).Title)

	w = st.do(t, http.MethodPut, path, map[string]any{"title": "Rotate certificates", "tags": []string{"tls"}})
	requireStatus(t, w, http.StatusOK)
	updated := decode[server.ArtifactBody](t, w)
	assert.Equal(t, "Rotate certificates", updated.Title)
	assert.Equal(t, "Run certbot renew weekly.", updated.Content)
	assert.Equal(t, []string{"tls"}, updated.Tags)

	w = st.do(t, http.MethodDelete, path, nil)
	requireStatus(t, w, http.StatusNoContent)

	w = st.do(t, http.MethodGet, path, nil)
	requireStatus(t, w, http.StatusNotFound)

	w = st.do(t, http.MethodDelete, path, nil)
	requireStatus(t, w, http.StatusNotFound)
}

func TestArtifactRoutes_CreateRejectsMissingTitle(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	w := st.do(t, http.MethodPost, "/api/v1/artifacts", map[string]any{"content": "body"})
	requireStatus(t, w, http.StatusUnprocessableEntity)

	count, err := st.artifacts.CountActive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestArtifactRoutes_UpdateUnknown(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	w := st.do(t, http.MethodPut, "/api/v1/artifacts/999", map[string]any{"title": "x"})
	requireStatus(t, w, http.StatusNotFound)
}

func TestArtifactRoutes_ListPaging(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})
	for i := range 5 {
		createArtifact(t, st, fmt.Sprintf("note %d", i), "content", "misc")
	}
	createArtifact(t, st, "other", "content", "ops")

	w := st.do(t, http.MethodGet, "/api/v1/artifacts?page=2&page_size=2&category=misc", nil)
	requireStatus(t, w, http.StatusOK)
	page := decode[listArtifactsBody](t, w)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Len(t, page.Items, 2)

	w = st.do(t, http.MethodGet, "/api/v1/artifacts?page_size=500", nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestSearchRoutes_RetrieveRecordsHistory(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})
	a := createArtifact(t, st, "Postgres vacuum schedule", "Autovacuum thresholds for large tables.", "db")
	createArtifact(t, st, "Kafka retention", "Seven days by default.", "queue")

	w := st.do(t, http.MethodPost, "/api/v1/search/retrieve", map[string]any{
		"query":     "vacuum",
		"top_k":     3,
		"threshold": 0.5,
	})
	requireStatus(t, w, http.StatusOK)
	resp := decode[retrieveBody](t, w)
	assert.Equal(t, "vacuum", resp.Query)
	require.NotEmpty(t, resp.Artifacts)
	var ids []int64
	for _, hit := range resp.Artifacts {
		ids = append(ids, hit.ID)
	}
	assert.Contains(t, ids, a.ID)
	assert.Equal(t, len(resp.Artifacts), resp.TotalCount)
	for _, hit := range resp.Artifacts {
		assert.GreaterOrEqual(t, hit.Similarity, 0.5)
		assert.LessOrEqual(t, hit.Similarity, 1.0)
	}

	w = st.do(t, http.MethodGet, "/api/v1/search/history?limit=10", nil)
	requireStatus(t, w, http.StatusOK)
	hist := decode[struct {
		Items []server.HistoryBody `json:"items"`
	}](t, w)
	require.Len(t, hist.Items, 1)
	assert.Equal(t, "vacuum", hist.Items[0].Query)
	assert.Equal(t, resp.TotalCount, hist.Items[0].ResultCount)

	w = st.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/search/history/%d", hist.Items[0].ID), nil)
	requireStatus(t, w, http.StatusNoContent)
	w = st.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/search/history/%d", hist.Items[0].ID), nil)
	requireStatus(t, w, http.StatusNotFound)
}

func TestSearchRoutes_RetrieveValidation(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"threshold above one", map[string]any{"query": "x", "threshold": 1.5}},
		{"negative top_k", map[string]any{"query": "x", "top_k": -1}},
		{"unknown field", map[string]any{"query": "x", "limit": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := st.do(t, http.MethodPost, "/api/v1/search/retrieve", tt.body)
			requireStatus(t, w, http.StatusUnprocessableEntity)
		})
	}
}

func TestSearchRoutes_AnswerWithoutCompleter(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})
	createArtifact(t, st, "vacuum", "notes", "db")

	w := st.do(t, http.MethodPost, "/api/v1/search/answer", map[string]any{"query": "vacuum"})
	requireStatus(t, w, http.StatusServiceUnavailable)
}

func TestImportRoutes_Completes(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	w := st.do(t, http.MethodPost, "/api/v1/import", map[string]any{
		"records": []map[string]any{
			{"title": "first", "content": "one", "category": "bulk"},
			{"title": "second", "content": "two", "tags": []string{"a"}},
		},
	})
	requireStatus(t, w, http.StatusAccepted)
	submitted := decode[struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}](t, w)
	require.NotEmpty(t, submitted.TaskID)
	assert.Equal(t, "processing", submitted.Status)

	path := "/api/v1/import/" + submitted.TaskID
	var task server.TaskBody
	require.Eventually(t, func() bool {
		w := st.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			return false
		}
		task = decode[server.TaskBody](t, w)
		return task.Status == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, task.Total)
	assert.Equal(t, 2, task.SuccessCount)
	assert.Zero(t, task.FailedCount)
	assert.InDelta(t, 100.0, task.Progress, 1e-9)
	assert.NotNil(t, task.EndTime)
	assert.Empty(t, task.Errors)

	n, err := st.index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	w = st.do(t, http.MethodPost, path+"/cancel", nil)
	requireStatus(t, w, http.StatusOK)
	assert.False(t, decode[struct {
		Cancelled bool `json:"cancelled"`
	}](t, w).Cancelled)
}

func TestImportRoutes_RejectsInvalidPayload(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	tests := []struct {
		name    string
		records any
	}{
		{"not an array", "nope"},
		{"missing content", []map[string]any{{"title": "ok", "content": "fine"}, {"title": "bad"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := st.do(t, http.MethodPost, "/api/v1/import", map[string]any{"records": tt.records})
			requireStatus(t, w, http.StatusBadRequest)
		})
	}

	count, err := st.artifacts.CountActive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportRoutes_UnknownTask(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	requireStatus(t, st.do(t, http.MethodGet, "/api/v1/import/missing", nil), http.StatusNotFound)
	requireStatus(t, st.do(t, http.MethodPost, "/api/v1/import/missing/cancel", nil), http.StatusNotFound)
}

func TestSystemRoutes(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})
	for i := range 3 {
		createArtifact(t, st, fmt.Sprintf("doc %d", i), "text", "misc")
	}

	w := st.do(t, http.MethodPost, "/api/v1/reindex", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 3, decode[struct {
		Indexed int `json:"indexed"`
	}](t, w).Indexed)

	w = st.do(t, http.MethodGet, "/api/v1/metrics", nil)
	requireStatus(t, w, http.StatusOK)
	m := decode[server.MetricsReport](t, w)
	assert.Equal(t, int64(3), m.ArtifactCount)
	assert.Equal(t, int64(3), m.VectorCount)
	assert.True(t, m.VectorAvailable)

	w = st.do(t, http.MethodGet, "/health", nil)
	requireStatus(t, w, http.StatusOK)
	h := decode[server.HealthReport](t, w)
	assert.Equal(t, "healthy", string(h.Status))
	assert.Equal(t, "healthy", string(h.Components["database"].Status))
	assert.Equal(t, "unavailable", string(h.Components["llm_service"].Status))
}

func TestServer_RateLimit(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	requireStatus(t, st.do(t, http.MethodGet, "/health", nil), http.StatusOK)
	requireStatus(t, st.do(t, http.MethodGet, "/health", nil), http.StatusOK)
	w := st.do(t, http.MethodGet, "/health", nil)
	requireStatus(t, w, http.StatusTooManyRequests)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestServer_OpenAPI(t *testing.T) {
	st := newStack(t, server.RateLimitConfig{})

	paths := st.srv.API().OpenAPI().Paths
	for _, p := range []string{
		"/health",
		"/api/v1/artifacts",
		"/api/v1/artifacts/{id}",
		"/api/v1/search/retrieve",
		"/api/v1/search/answer",
		"/api/v1/import/{taskId}/cancel",
	} {
		assert.Contains(t, paths, p)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := server.New(server.Config{}, nil)
	require.Error(t, err)

	_, err = server.NewServices(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}
