// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package anthropic

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.CompletionRequest, model string, maxTokens int) anthropicsdk.MessageNewParams {
	return buildParams(req, model, maxTokens)
}
