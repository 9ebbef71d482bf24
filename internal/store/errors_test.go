// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStoreErrors_Classified(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"NotFound direct", srserr.New(srserr.CodeStoreArtifactGetNotFound, "not found"), srserr.IsNotFound},
		{"NotFound wrapped", fmt.Errorf("outer: %w", srserr.New(srserr.CodeStoreHistoryGetNotFound, "x")), srserr.IsNotFound},
		{"InvalidInput", srserr.New(srserr.CodeStoreInvalidInput, "bad"), srserr.IsInvalidInput},
		{"Database", srserr.New(srserr.CodeStoreDatabaseFailure, "db"), func(err error) bool {
			return srserr.HasCode(err, srserr.CodeStoreDatabaseFailure)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestSentinelsSurviveCodedWrapping(t *testing.T) {
	err := srserr.Errorf(srserr.CodeStoreArtifactGetNotFound, "artifact 7: %w", store.ErrNotFound)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, srserr.IsNotFound(err))
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, store.CheckDimensions("query", make([]float32, 4), 4))

	err := store.CheckDimensions("query", make([]float32, 3), 4)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
	assert.True(t, srserr.HasCode(err, srserr.CodeVectorDimensionsInvalid))
	assert.Contains(t, err.Error(), "query has 3 dimensions, index expects 4")
}
