// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/secrets"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func TestKeyringStore_RoundTripAndIndex(t *testing.T) {
	keyring.MockInit()
	store := secrets.NewKeyringStore()

	require.NoError(t, store.Set("srs-test", "openai", "sk-1"))
	require.NoError(t, store.Set("srs-test", "anthropic", "sk-2"))
	require.NoError(t, store.Set("srs-test", "openai", "sk-3"))

	v, err := store.Get("srs-test", "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-3", v)

	keys, err := store.List("srs-test")
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "anthropic"}, keys)

	require.NoError(t, store.Delete("srs-test", "openai"))
	_, err = store.Get("srs-test", "openai")
	assert.True(t, srserr.IsNotFound(err))

	keys, err = store.List("srs-test")
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic"}, keys)

	require.NoError(t, store.Delete("srs-test", "anthropic"))
	keys, err = store.List("srs-test")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_MissingAndInvalid(t *testing.T) {
	keyring.MockInit()
	store := secrets.NewKeyringStore()

	assert.True(t, srserr.IsNotFound(store.Delete("srs-test", "nope")))
	_, err := store.Get("", "k")
	assert.True(t, srserr.IsInvalidInput(err))
}
