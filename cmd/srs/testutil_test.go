// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/secrets"
)

// memoryConfig keeps every store in process and embeds offline.
const memoryConfig = `
server:
  listen: "127.0.0.1:18000"
storage:
  backend: memory
vector:
  backend: memory
  dimensions: 32
embedding:
  provider: local
llm:
  provider: none
search:
  threshold: 0.3
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// useSecretStore swaps the keyring for an in-memory store for one test.
func useSecretStore(t *testing.T) *secrets.MemoryStore {
	t.Helper()
	store := secrets.NewMemoryStore()
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = old })
	return store
}

// runCLI executes the root command with a fresh global viper.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
