// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package google

import (
	"context"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const (
	providerName = "google"

	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultCompletionModel = "gemini-2.5-flash"
	defaultBatchSize       = 10
	defaultMaxTokens       = 512
)

// Config holds Google provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	MaxTokens  int
	Timeout    time.Duration
}

func newClient(cfg Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, srserr.New(srserr.CodeProviderRequestInvalid, "google: missing api_key in config", srserr.FieldProvider(providerName))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, srserr.Wrapf(err, srserr.CodeProviderUpstreamFailure, "google: creating client")
	}
	return client, nil
}

// Embedder implements provider.Embedder using Gemini embedding models.
type Embedder struct {
	client    *genai.Client
	model     string
	dims      int
	batchSize int
}

var _ provider.Embedder = (*Embedder)(nil)

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
	return &Embedder{client: client, model: cfg.Model, dims: cfg.Dimensions, batchSize: cfg.BatchSize}, nil
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

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var cfg *genai.EmbedContentConfig
	if e.dims > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dims))}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for i, t := range texts[start:end] {
			if strings.TrimSpace(t) == "" {
				return nil, srserr.Errorf(srserr.CodeProviderRequestInvalid, "google: input %d is empty", start+i)
			}
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
		if err != nil {
			return nil, provider.WrapUpstream(ctx, err, providerName, "google: embedding content")
		}
		if len(resp.Embeddings) != len(contents) {
			return nil, srserr.Errorf(srserr.CodeProviderResponseInvalid,
				"google: got %d embeddings for %d inputs", len(resp.Embeddings), len(contents))
		}
		for _, emb := range resp.Embeddings {
			if emb == nil || (e.dims > 0 && len(emb.Values) != e.dims) {
				return nil, srserr.New(srserr.CodeProviderResponseInvalid,
					"google: embedding has unexpected dimensions", srserr.FieldProvider(providerName))
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

// Completer implements provider.Completer using GenerateContent.
type Completer struct {
	client    *genai.Client
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
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	resp, err := c.client.Models.GenerateContent(ctx, model,
		genai.Text(req.Prompt), buildConfig(req, c.maxTokens))
	if err != nil {
		return "", provider.WrapUpstream(ctx, err, providerName, "google: generating content")
	}
	text := resp.Text()
	if text == "" {
		return "", srserr.New(srserr.CodeProviderResponseInvalid,
			"google: empty completion", srserr.FieldProvider(providerName))
	}
	return text, nil
}

// buildConfig converts a provider.CompletionRequest into a genai.GenerateContentConfig.
func buildConfig(req provider.CompletionRequest, maxTokens int) *genai.GenerateContentConfig {
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}

	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return cfg
}
