// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// redacted replaces credentials in rendered output.
const redacted = "********"

// DefaultConfigPath returns ~/.config/srs/srs.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", srserr.Errorf(srserr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "srs", "srs.yaml"), nil
}

// Render encodes cfg as YAML. API keys are masked unless they are keyring
// references.
func Render(cfg *Config) ([]byte, error) {
	cp := *cfg
	cp.Embedding.APIKey = mask(cp.Embedding.APIKey)
	cp.LLM.APIKey = mask(cp.LLM.APIKey)
	cp.Storage.PostgresDSN = mask(cp.Storage.PostgresDSN)
	out, err := yaml.Marshal(&cp)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeConfigParseInvalidFormat, "encoding config: %w", err)
	}
	return out, nil
}

func mask(v string) string {
	if v == "" || strings.HasPrefix(v, "keyring://") {
		return v
	}
	return redacted
}

// Bootstrap writes the default configuration to path unless a file already
// exists there. It returns true when a file was written.
func Bootstrap(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, srserr.Errorf(srserr.CodeConfigLoadReadFailure, "creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, srserr.Errorf(srserr.CodeConfigParseInvalidFormat, "encoding default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, srserr.Errorf(srserr.CodeConfigLoadReadFailure, "writing %s: %w", path, err)
	}
	slog.Info("created default config", "path", path)
	return true, nil
}
