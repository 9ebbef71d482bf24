// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package openai

import (
	openaisdk "github.com/openai/openai-go"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.CompletionRequest, model string, maxTokens int) openaisdk.ChatCompletionNewParams {
	return buildParams(req, model, maxTokens)
}
