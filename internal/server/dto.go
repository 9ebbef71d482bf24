// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server

import (
	"encoding/json"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/batchimport"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
)

// ArtifactBody is the REST representation of an artifact.
type ArtifactBody struct {
	ID         int64          `json:"id" doc:"Artifact identifier"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Category   string         `json:"category"`
	Tags       []string       `json:"tags"`
	Metadata   map[string]any `json:"metadata"`
	SourceType string         `json:"source_type"`
	SourcePath string         `json:"source_path"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func toArtifactBody(a *store.Artifact) ArtifactBody {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return ArtifactBody{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Category:   a.Category,
		Tags:       tags,
		Metadata:   metadataMap(a.Metadata),
		SourceType: a.SourceType,
		SourcePath: a.SourcePath,
		IsActive:   a.IsActive,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// metadataMap flattens metadata into the open object clients see.
func metadataMap(m store.Metadata) map[string]any {
	out := map[string]any{}
	data, err := json.Marshal(m)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}

// parseMetadata splits a client object into known fields and extras.
func parseMetadata(raw map[string]any) (store.Metadata, error) {
	var m store.Metadata
	if len(raw) == 0 {
		return m, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

// ScoredArtifactBody is a search hit.
type ScoredArtifactBody struct {
	ArtifactBody
	Similarity float64 `json:"similarity" doc:"Score in (0, 1]"`
	Source     string  `json:"match_source" enum:"vector,keyword_title,keyword_content"`
}

func toScoredBodies(hits []retrieval.ScoredArtifact) []ScoredArtifactBody {
	out := make([]ScoredArtifactBody, 0, len(hits))
	for _, h := range hits {
		out = append(out, ScoredArtifactBody{
			ArtifactBody: toArtifactBody(h.Artifact),
			Similarity:   h.Similarity,
			Source:       string(h.Source),
		})
	}
	return out
}

// SearchRequestBody is shared by retrieve and answer.
type SearchRequestBody struct {
	Query      string   `json:"query" maxLength:"2000" doc:"Query text; empty matches broadly"`
	TopK       int      `json:"top_k,omitempty" minimum:"1" maximum:"100" doc:"Maximum results; server default when omitted"`
	Threshold  *float64 `json:"threshold,omitempty" minimum:"0" maximum:"1" doc:"Minimum similarity; server default when omitted"`
	Categories []string `json:"categories,omitempty" doc:"Restrict to these categories"`
}

func (b SearchRequestBody) request() retrieval.Request {
	return retrieval.Request{
		Query:      b.Query,
		TopK:       b.TopK,
		Threshold:  b.Threshold,
		Categories: b.Categories,
	}
}

// HistoryBody is one search log entry.
type HistoryBody struct {
	ID           int64     `json:"id"`
	Query        string    `json:"query"`
	ResultCount  int       `json:"result_count"`
	ResponseTime float64   `json:"response_time" doc:"Seconds; negative when the search failed"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskBody is an import task snapshot.
type TaskBody struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status" enum:"processing,completed,failed,cancelled"`
	Total        int        `json:"total"`
	Processed    int        `json:"processed"`
	SuccessCount int        `json:"success_count"`
	FailedCount  int        `json:"failed_count"`
	Errors       []string   `json:"errors"`
	Progress     float64    `json:"progress" doc:"Percentage of records processed"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

func toTaskBody(t batchimport.Task) TaskBody {
	b := TaskBody{
		TaskID:       t.ID,
		Status:       string(t.Status),
		Total:        t.Total,
		Processed:    t.Processed,
		SuccessCount: t.SuccessCount,
		FailedCount:  t.FailedCount,
		Errors:       t.RecentErrors,
		StartTime:    t.StartTime,
	}
	if b.Errors == nil {
		b.Errors = []string{}
	}
	if t.Total > 0 {
		b.Progress = float64(t.Processed) / float64(t.Total) * 100
	} else if t.Status.Terminal() {
		b.Progress = 100
	}
	if !t.EndTime.IsZero() {
		end := t.EndTime
		b.EndTime = &end
	}
	return b
}
