// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package local provides an offline embedder. Vectors are built by hashing
// word tokens into buckets, so texts sharing words land close together. It
// carries no semantic model and is meant for development, tests, and
// air-gapped installs.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const DefaultDimensions = 256

// Embedder is a deterministic feature-hashing embedder.
type Embedder struct {
	dims int
}

var _ provider.Embedder = (*Embedder)(nil)

func NewEmbedder(dims int) (*Embedder, error) {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	if dims < 2 {
		return nil, srserr.Errorf(srserr.CodeProviderRequestInvalid, "local: dimensions must be at least 2, got %d", dims)
	}
	return &Embedder{dims: dims}, nil
}

func (e *Embedder) Name() string    { return "local" }
func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

// vector returns a unit-length vector, or the zero vector for text with no
// word tokens.
func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dims))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
