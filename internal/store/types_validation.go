// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

import (
	"fmt"
	"strings"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	maxCategoryLen   = 64
	maxSourceTypeLen = 32
)

// Validate checks the fields required before an artifact is created.
func (a Artifact) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return srserr.New(srserr.CodeStoreInvalidInput, "artifact: title is required")
	}
	if strings.TrimSpace(a.Content) == "" {
		return srserr.New(srserr.CodeStoreInvalidInput, "artifact: content is required")
	}
	if len(a.Category) > maxCategoryLen {
		return srserr.Errorf(srserr.CodeStoreInvalidInput, "artifact: category exceeds %d characters", maxCategoryLen)
	}
	if len(a.SourceType) > maxSourceTypeLen {
		return srserr.Errorf(srserr.CodeStoreInvalidInput, "artifact: source type exceeds %d characters", maxSourceTypeLen)
	}
	return nil
}

// Validate rejects patches that would blank a required field.
func (p ArtifactPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return srserr.New(srserr.CodeStoreInvalidInput, "artifact patch: title cannot be empty")
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return srserr.New(srserr.CodeStoreInvalidInput, "artifact patch: content cannot be empty")
	}
	if p.Category != nil && len(*p.Category) > maxCategoryLen {
		return srserr.Errorf(srserr.CodeStoreInvalidInput, "artifact patch: category exceeds %d characters", maxCategoryLen)
	}
	return nil
}

// Apply copies the non-nil patch fields onto a.
func (p ArtifactPatch) Apply(a *Artifact) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Metadata != nil {
		a.Metadata = *p.Metadata
	}
	if p.SourceType != nil {
		a.SourceType = *p.SourceType
	}
	if p.SourcePath != nil {
		a.SourcePath = *p.SourcePath
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
}

// Validate checks the dimensions and id of an index entry.
func (e VectorEntry) Validate(dims int) error {
	if e.ID <= 0 {
		return srserr.Errorf(srserr.CodeStoreInvalidInput, "vector entry: invalid id %d", e.ID)
	}
	return CheckDimensions(fmt.Sprintf("vector entry %d", e.ID), e.Embedding, dims)
}

// NormalizeTags trims, drops empties and removes duplicates while keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
