// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package google

import (
	"google.golang.org/genai"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
)

// BuildConfig exposes buildConfig for white-box testing.
var BuildConfig = func(req provider.CompletionRequest, maxTokens int) *genai.GenerateContentConfig {
	return buildConfig(req, maxTokens)
}
