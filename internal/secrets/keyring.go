// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"slices"

	"github.com/zalando/go-keyring"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// indexKey holds a JSON list of the keys stored for a service, since the OS
// keyrings cannot enumerate entries.
const indexKey = "__srs_keys__"

// KeyringStore stores secrets in the OS keyring (Keychain, Secret Service or
// Windows Credential Manager).
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore { return &KeyringStore{} }

func (KeyringStore) Set(service, key, value string) error {
	if err := checkNames(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (KeyringStore) Get(service, key string) (string, error) {
	if err := checkNames(service, key); err != nil {
		return "", err
	}
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", notFound(service, key)
	}
	if err != nil {
		return "", srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return v, nil
}

func (KeyringStore) Delete(service, key string) error {
	if err := checkNames(service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return notFound(service, key)
	}
	if err != nil {
		return srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

func (KeyringStore) List(service string) ([]string, error) {
	return loadIndex(service)
}

func loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "reading key index for %s", service)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func updateIndex(service string, fn func([]string) []string) error {
	keys, err := loadIndex(service)
	if err != nil {
		return err
	}
	keys = fn(keys)
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "clearing key index for %s", service)
		}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "writing key index for %s", service)
	}
	return nil
}
