// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store

import (
	"errors"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Backends wrap these under a coded error; match with errors.Is.
var (
	// ErrNotFound: no row with that id, or the artifact is inactive.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch: a vector's length differs from the index's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CheckDimensions returns an error wrapping ErrDimensionMismatch when
// len(embedding) != dims. what names the vector in the message.
func CheckDimensions(what string, embedding []float32, dims int) error {
	if len(embedding) == dims {
		return nil
	}
	return srserr.Errorf(srserr.CodeVectorDimensionsInvalid,
		"%s has %d dimensions, index expects %d: %w", what, len(embedding), dims, ErrDimensionMismatch)
}
