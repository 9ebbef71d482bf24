// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := srserr.New(
		srserr.CodeStoreArtifactGetNotFound,
		"artifact not found",
		srserr.FieldArtifactID(42),
		srserr.FieldBackend("sqlite"),
	)

	require.Error(t, err)
	assert.Equal(t, srserr.CodeStoreArtifactGetNotFound, srserr.CodeOf(err))
	assert.True(t, srserr.HasCode(err, srserr.CodeStoreArtifactGetNotFound))

	fields := srserr.FieldsOf(err)
	assert.Equal(t, int64(42), fields["artifact_id"])
	assert.Equal(t, "sqlite", fields["backend"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := srserr.Errorf(srserr.CodeStoreDatabaseFailure, "inserting artifact: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "inserting artifact")
}

func TestWrapPreservesChain(t *testing.T) {
	root := stderrors.New("connection refused")
	err := srserr.Wrap(root, srserr.CodeProviderUpstreamFailure, "embedding query",
		srserr.FieldProvider("openai"))

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, srserr.IsUpstreamFailure(err))
	assert.Equal(t, "openai", srserr.FieldsOf(err)["provider"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, srserr.Wrap(nil, srserr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, srserr.Wrapf(nil, srserr.CodeServerInternalFailure, "ignored %d", 1))
	assert.NoError(t, srserr.With(nil, srserr.FieldTaskID("t")))
}

func TestWithKeepsCode(t *testing.T) {
	base := srserr.New(srserr.CodeImportTaskNotFound, "no such task")
	err := srserr.With(base, srserr.FieldTaskID("abc"))
	assert.Equal(t, srserr.CodeImportTaskNotFound, srserr.CodeOf(err))
	assert.Equal(t, "abc", srserr.FieldsOf(err)["task_id"])
}

func TestWithPlainErrorDefaultsToInternal(t *testing.T) {
	err := srserr.With(stderrors.New("boom"), srserr.FieldTaskID("abc"))
	assert.Equal(t, srserr.CodeServerInternalFailure, srserr.CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, srserr.Code(""), srserr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, srserr.Code(""), srserr.CodeOf(nil))
	assert.Nil(t, srserr.FieldsOf(stderrors.New("plain")))
}

func TestCodeSurvivesStdlibWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", srserr.New(srserr.CodeStoreHistoryGetNotFound, "gone"))
	assert.True(t, srserr.IsNotFound(err))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name   string
		code   srserr.Code
		status int
	}{
		{"not found", srserr.CodeStoreArtifactGetNotFound, http.StatusNotFound},
		{"invalid input", srserr.CodeStoreInvalidInput, http.StatusBadRequest},
		{"invalid payload", srserr.CodeImportPayloadInvalid, http.StatusBadRequest},
		{"invalid config value", srserr.CodeConfigValidateInvalidValue, http.StatusBadRequest},
		{"upstream", srserr.CodeProviderUpstreamFailure, http.StatusBadGateway},
		{"vector unavailable", srserr.CodeVectorIndexUnavailable, http.StatusServiceUnavailable},
		{"completion not configured", srserr.CodeProviderNotConfigured, http.StatusServiceUnavailable},
		{"not implemented", srserr.CodeServerNotImplemented, http.StatusNotImplemented},
		{"database", srserr.CodeStoreDatabaseFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := srserr.New(tt.code, tt.name)
			assert.Equal(t, tt.status, srserr.HTTPStatus(err))
		})
	}
}

func TestTimeoutClassification(t *testing.T) {
	err := srserr.New(srserr.Code("provider.embedding.timeout"), "slow")
	assert.True(t, srserr.IsTimeout(err))
	assert.Equal(t, http.StatusGatewayTimeout, srserr.HTTPStatus(err))
}

func TestJoinKeepsAllErrors(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")
	err := srserr.Join(a, b)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.Equal(t, srserr.CodeServerInternalFailure, srserr.CodeOf(err))
}
