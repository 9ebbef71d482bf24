// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package batchimport

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Record is one validated import element.
type Record struct {
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Category   string         `json:"category,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   store.Metadata `json:"metadata,omitempty"`
	SourceType string         `json:"source_type,omitempty"`
	SourcePath string         `json:"source_path,omitempty"`
}

// Artifact converts the record into a new artifact.
func (r Record) Artifact() *store.Artifact {
	return &store.Artifact{
		Title:      r.Title,
		Content:    r.Content,
		Category:   r.Category,
		Tags:       r.Tags,
		Metadata:   r.Metadata,
		SourceType: r.SourceType,
		SourcePath: r.SourcePath,
	}
}

// ParseRecords decodes and validates a JSON array of records. Any invalid
// element rejects the whole payload; positions in messages are 1-based.
func ParseRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, srserr.New(srserr.CodeImportPayloadInvalid, "payload must be a JSON array")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, srserr.Wrap(err, srserr.CodeImportPayloadInvalid, "decoding payload")
	}

	records := make([]Record, 0, len(elems))
	for i, raw := range elems {
		rec, err := parseRecord(raw)
		if err != nil {
			return nil, srserr.Wrapf(err, srserr.CodeImportPayloadInvalid, "record %d", i+1)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(raw json.RawMessage) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Record{}, srserr.New(srserr.CodeImportPayloadInvalid, "not an object")
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Content = strings.TrimSpace(rec.Content)
	rec.Category = strings.TrimSpace(rec.Category)
	rec.SourceType = strings.TrimSpace(rec.SourceType)
	rec.SourcePath = strings.TrimSpace(rec.SourcePath)

	if rec.Title == "" {
		return Record{}, srserr.New(srserr.CodeImportPayloadInvalid, "title is required")
	}
	if rec.Content == "" {
		return Record{}, srserr.New(srserr.CodeImportPayloadInvalid, "content is required")
	}
	if err := rec.Artifact().Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
