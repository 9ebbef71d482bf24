// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

func newTestArtifactStore(t *testing.T) *sqlite.ArtifactStore {
	t.Helper()
	s, err := sqlite.NewArtifactStore(testDBPath(t, "artifacts"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestVectorIndex(t *testing.T, dims int) *sqlite.VectorIndex {
	t.Helper()
	v, err := sqlite.NewVectorIndex(testDBPath(t, "vectors"), dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}
