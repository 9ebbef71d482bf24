// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package secrets keeps provider credentials out of config files. A config
// value of the form keyring://service/key is replaced at load time by the
// secret stored under that service and key.
package secrets

import (
	"sort"
	"sync"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// DefaultService is the keyring service used by the CLI.
const DefaultService = "srs"

// Store saves and fetches secrets by service and key.
type Store interface {
	Set(service, key, value string) error
	// Get returns a CodeSecretNotFound error for unknown keys.
	Get(service, key string) (string, error)
	Delete(service, key string) error
	List(service string) ([]string, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (m *MemoryStore) Set(service, key, value string) error {
	if err := checkNames(service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[service] == nil {
		m.data[service] = make(map[string]string)
	}
	m.data[service][key] = value
	return nil
}

func (m *MemoryStore) Get(service, key string) (string, error) {
	if err := checkNames(service, key); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[service][key]
	if !ok {
		return "", notFound(service, key)
	}
	return v, nil
}

func (m *MemoryStore) Delete(service, key string) error {
	if err := checkNames(service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[service][key]; !ok {
		return notFound(service, key)
	}
	delete(m.data[service], key)
	return nil
}

func (m *MemoryStore) List(service string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data[service]))
	for k := range m.data[service] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func checkNames(service, key string) error {
	if service == "" || key == "" {
		return srserr.New(srserr.CodeSecretInputInvalid, "secret service and key must not be empty")
	}
	return nil
}

func notFound(service, key string) error {
	return srserr.Errorf(srserr.CodeSecretNotFound, "secret %s/%s not found", service, key)
}
