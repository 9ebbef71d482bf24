// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/secrets"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func TestSecretList(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		wantOut string
	}{
		{name: "empty store", wantOut: "No secrets stored.\n"},
		{name: "single key", keys: []string{"openai-api-key"}, wantOut: "openai-api-key\n"},
		{name: "sorted", keys: []string{"b-key", "a-key"}, wantOut: "a-key\nb-key\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := useSecretStore(t)
			for _, k := range tt.keys {
				require.NoError(t, store.Set(secrets.DefaultService, k, "value"))
			}
			out, err := runCLI(t, "", "secret", "list")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

func TestSecretSetGetDelete(t *testing.T) {
	store := useSecretStore(t)

	out, err := runCLI(t, "", "secret", "set", "openai-api-key", "sk-test")
	require.NoError(t, err)
	assert.Contains(t, out, "keyring://srs/openai-api-key")

	got, err := store.Get(secrets.DefaultService, "openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got)

	out, err = runCLI(t, "", "secret", "get", "openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test\n", out)

	out, err = runCLI(t, "", "secret", "delete", "openai-api-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted secret: openai-api-key")

	_, err = runCLI(t, "", "secret", "delete", "openai-api-key")
	require.Error(t, err)
	assert.True(t, srserr.IsNotFound(err), err)
}

func TestSecretSet_FromStdin(t *testing.T) {
	store := useSecretStore(t)

	_, err := runCLI(t, "sk-from-stdin\n", "secret", "set", "anthropic-api-key")
	require.NoError(t, err)
	got, err := store.Get(secrets.DefaultService, "anthropic-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-stdin", got)

	_, err = runCLI(t, "", "secret", "set", "empty")
	require.Error(t, err)
}

func TestConfigResolvesKeyringReferences(t *testing.T) {
	store := useSecretStore(t)
	require.NoError(t, store.Set(secrets.DefaultService, "openai-api-key", "sk-resolved"))

	cfg := writeFile(t, "srs.yaml", strings.Replace(memoryConfig, "llm:\n  provider: none", "llm:\n  provider: none\n  api_key: \"keyring://srs/openai-api-key\"", 1))

	_, err := runCLI(t, "", "--config", cfg, "config", "validate")
	require.NoError(t, err)

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-resolved", loaded.LLM.APIKey)
}
