// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package openai implements embedding and completion providers on the
// OpenAI API. Any OpenAI-compatible endpoint works through BaseURL.
package openai

import (
	"context"
	"sort"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	providerName = "openai"

	DefaultEmbeddingModel  = "text-embedding-3-small"
	DefaultCompletionModel = "gpt-4.1-mini"
	defaultBatchSize       = 10
	defaultMaxTokens       = 512
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	Model   string
	// Dimensions requests shortened vectors from text-embedding-3 models
	// and is checked against every returned vector.
	Dimensions int
	BatchSize  int
	MaxTokens  int
	Timeout    time.Duration
}

func newClient(cfg Config) (openaisdk.Client, error) {
	if cfg.APIKey == "" {
		return openaisdk.Client{}, srserr.New(srserr.CodeProviderRequestInvalid,
			"openai: missing api_key in config", srserr.FieldProvider(providerName))
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
	return openaisdk.NewClient(opts...), nil
}

// Embedder implements provider.Embedder using the Embeddings API.
type Embedder struct {
	client    openaisdk.Client
	model     string
	dims      int
	batchSize int
}

var _ provider.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder. Returns an error if the API key is missing.
func NewEmbedder(cfg Config) (*Embedder, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Embedder{
		client:    client,
		model:     cfg.Model,
		dims:      cfg.Dimensions,
		batchSize: cfg.BatchSize,
	}, nil
}

func (e *Embedder) Name() string    { return providerName }
func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch splits texts into requests of at most BatchSize inputs.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, srserr.Errorf(srserr.CodeProviderRequestInvalid,
				"openai: input %d is empty", i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		chunk, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (e *Embedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dims > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = param.NewOpt(int64(e.dims))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, provider.WrapUpstream(ctx, err, providerName, "openai: creating embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, srserr.Errorf(srserr.CodeProviderResponseInvalid,
			"openai: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		if e.dims > 0 && len(d.Embedding) != e.dims {
			return nil, srserr.Errorf(srserr.CodeProviderResponseInvalid,
				"openai: embedding has %d dimensions, want %d", len(d.Embedding), e.dims)
		}
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, nil
}

// Completer implements provider.Completer using Chat Completions.
type Completer struct {
	client    openaisdk.Client
	model     string
	maxTokens int
}

var _ provider.Completer = (*Completer)(nil)

func NewCompleter(cfg Config) (*Completer, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCompletionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Completer{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}, nil
}

func (c *Completer) Name() string { return providerName }

func (c *Completer) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, buildParams(req, c.model, c.maxTokens))
	if err != nil {
		return "", provider.WrapUpstream(ctx, err, providerName, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", srserr.New(srserr.CodeProviderResponseInvalid,
			"openai: completion returned no choices", srserr.FieldProvider(providerName))
	}
	return resp.Choices[0].Message.Content, nil
}

// buildParams converts a provider.CompletionRequest into SDK params.
func buildParams(req provider.CompletionRequest, model string, maxTokens int) openaisdk.ChatCompletionNewParams {
	if req.Model != "" {
		model = req.Model
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		Messages:            msgs,
		MaxCompletionTokens: param.NewOpt(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(float64(*req.Temperature))
	}
	return params
}
