// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package provider

import (
	"context"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// Embedder converts text to fixed-dimension vectors. Implementations do not
// retry; callers decide how to degrade on failure.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Completer produces a text completion for a prompt.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single-turn completion.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  *float32
}

// Status describes a provider for health reporting.
type Status struct {
	Provider  string
	Available bool
	Metrics   HealthMetrics
}

// WrapUpstream classifies a failed provider call. Errors raised after ctx was
// cancelled or timed out are reported as timeouts.
func WrapUpstream(ctx context.Context, err error, name, msg string) error {
	code := srserr.CodeProviderUpstreamFailure
	if ctx.Err() != nil {
		code = srserr.CodeProviderRequestTimeout
	}
	return srserr.Wrap(err, code, msg, srserr.FieldProvider(name))
}
