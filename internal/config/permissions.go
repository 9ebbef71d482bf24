// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// CheckPermissions warns when the config file at path can be read by group
// or others, since it may hold API keys. It never fails.
func CheckPermissions(logger *slog.Logger, path string) bool {
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		logger.Debug("config permission check skipped", "path", path, "error", err)
		return true
	}
	const groupOrOtherRead fs.FileMode = 0o044
	if info.Mode().Perm()&groupOrOtherRead != 0 {
		logger.Warn("config file is readable by other users, API keys may be exposed",
			"path", path,
			"mode", info.Mode().Perm(),
			"recommended", "0600",
		)
		return false
	}
	return true
}
