// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

import (
	"encoding/json"
	"strings"
	"time"
)

// --- Artifact types ---

// Artifact is the authoritative record of a retrievable unit of text.
type Artifact struct {
	ID         int64
	Title      string
	Content    string
	Category   string
	Tags       []string
	Metadata   Metadata
	SourceType string
	SourcePath string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EmbeddingText returns the text an embedding is computed from.
func (a *Artifact) EmbeddingText() string {
	return EmbeddingText(a.Title, a.Content)
}

// EmbeddingText joins title and content with a blank line. When one side is
// empty the other is returned alone; both empty yields "".
func EmbeddingText(title, content string) string {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	switch {
	case title == "":
		return content
	case content == "":
		return title
	default:
		return title + "\n\n" + content
	}
}

// Metadata carries the well-known artifact attributes plus any additional
// keys supplied by the caller. It serializes to a flat JSON object.
type Metadata struct {
	Author   string
	Language string
	URL      string
	Extra    map[string]any
}

var metadataKnownKeys = map[string]bool{"author": true, "language": true, "url": true}

// MarshalJSON flattens known fields and Extra into one object. Known fields
// win over Extra entries with the same key.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Author != "" {
		out["author"] = m.Author
	}
	if m.Language != "" {
		out["language"] = m.Language
	}
	if m.URL != "" {
		out["url"] = m.URL
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat object into known fields and Extra. Known keys
// holding non-string values are kept in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{}
	for k, v := range raw {
		s, isString := v.(string)
		if metadataKnownKeys[k] && isString {
			switch k {
			case "author":
				m.Author = s
			case "language":
				m.Language = s
			case "url":
				m.URL = s
			}
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = v
	}
	return nil
}

// IsZero reports whether the metadata carries no values.
func (m Metadata) IsZero() bool {
	return m.Author == "" && m.Language == "" && m.URL == "" && len(m.Extra) == 0
}

// ArtifactPatch is a partial update. Nil fields are left unchanged.
type ArtifactPatch struct {
	Title      *string
	Content    *string
	Category   *string
	Tags       *[]string
	Metadata   *Metadata
	SourceType *string
	SourcePath *string
	IsActive   *bool
}

// TouchesEmbedding reports whether applying the patch can change the
// artifact's vector entry.
func (p ArtifactPatch) TouchesEmbedding() bool {
	return p.Title != nil || p.Content != nil || p.Category != nil
}

// Reactivates reports whether the patch sets is_active to true. Only such a
// patch may target a soft-deleted artifact.
func (p ArtifactPatch) Reactivates() bool {
	return p.IsActive != nil && *p.IsActive
}

// ListOpts controls paging and filtering for artifact listings.
type ListOpts struct {
	Limit    int
	Offset   int
	Keyword  string
	Category string
}

// KeywordQuery is a case-insensitive substring search over title and content.
type KeywordQuery struct {
	Substring  string
	Categories []string
	Limit      int
	ExcludeIDs []int64
}

// KeywordMatch is a keyword-search hit. TitleMatch is false for hits that
// only matched on content.
type KeywordMatch struct {
	Artifact   *Artifact
	TitleMatch bool
}

// --- Vector types ---

// VectorMetadata is the restricted projection stored alongside an embedding.
type VectorMetadata struct {
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
}

// VectorSourceArtifact tags entries derived from artifacts.
const VectorSourceArtifact = "artifact"

// VectorEntry is the similarity-index projection of an artifact, keyed by the
// artifact id.
type VectorEntry struct {
	ID        int64
	Embedding []float32
	Metadata  VectorMetadata
}

// VectorHit is a nearest-neighbor result. Distance is non-negative; smaller
// means closer.
type VectorHit struct {
	ID       int64
	Distance float64
	Metadata VectorMetadata
}

// --- Search history types ---

// SearchHistoryRecord logs one retrieval. ResponseTime is in seconds; a
// negative value marks a failed search.
type SearchHistoryRecord struct {
	ID           int64
	Query        string
	ResultCount  int
	ResponseTime float64
	CreatedAt    time.Time
}

// HistoryStats aggregates the search log.
type HistoryStats struct {
	TotalSearches   int64
	AvgResponseTime float64
}
