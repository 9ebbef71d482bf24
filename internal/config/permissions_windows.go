// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

//go:build windows

package config

import "log/slog"

// CheckPermissions is a no-op on Windows, where access is governed by ACLs.
func CheckPermissions(_ *slog.Logger, _ string) bool { return true }
