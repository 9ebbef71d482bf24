// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package anthropic

import (
	"context"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	providerName = "anthropic"

	DefaultModel     = "claude-haiku-4-5"
	defaultMaxTokens = 512
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey    string
	BaseURL   string // optional, useful for testing against a mock server
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Completer implements provider.Completer using the Messages API. Anthropic
// has no embedding endpoint, so there is no Embedder here.
type Completer struct {
	client    anthropicsdk.Client
	model     string
	maxTokens int
}

var _ provider.Completer = (*Completer)(nil)

// NewCompleter returns an error if the API key is missing.
func NewCompleter(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, srserr.New(srserr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config", srserr.FieldProvider(providerName))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	return &Completer{
		client:    anthropicsdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (c *Completer) Name() string { return providerName }

func (c *Completer) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	msg, err := c.client.Messages.New(ctx, buildParams(req, c.model, c.maxTokens))
	if err != nil {
		return "", provider.WrapUpstream(ctx, err, providerName, "anthropic: creating message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", srserr.New(srserr.CodeProviderResponseInvalid,
			"anthropic: response has no text content", srserr.FieldProvider(providerName))
	}
	return sb.String(), nil
}

// buildParams converts a provider.CompletionRequest into Anthropic SDK params.
func buildParams(req provider.CompletionRequest, model string, maxTokens int) anthropicsdk.MessageNewParams {
	if req.Model != "" {
		model = req.Model
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropicsdk.Float(float64(*req.Temperature))
	}
	return params
}
