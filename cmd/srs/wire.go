// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/artifacts"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/batchimport"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/config"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/observability"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	anthropicprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/anthropic"
	googleprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/google"
	localprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/local"
	openaiprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/openai"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/server"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	_ "github.com/PluginsX/SemanticRetrievalSystem/internal/store/memory"   // register memory backends
	_ "github.com/PluginsX/SemanticRetrievalSystem/internal/store/postgres" // register postgres backend
	_ "github.com/PluginsX/SemanticRetrievalSystem/internal/store/qdrant"   // register qdrant vector backend
	_ "github.com/PluginsX/SemanticRetrievalSystem/internal/store/sqlite"   // register sqlite backends
	"github.com/PluginsX/SemanticRetrievalSystem/internal/vectorsync"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// App holds every wired subsystem and owns their lifecycle.
type App struct {
	Config     *config.Config
	Stores     *store.Stores
	Index      store.VectorIndex
	Embedder   provider.Embedder
	Completer  provider.Completer
	Sync       *vectorsync.Service
	Dispatcher *vectorsync.Dispatcher
	Imports    *batchimport.Manager
	Artifacts  *artifacts.Service
	Engine     *retrieval.Engine
	Monitor    *server.Monitor

	tracer *observability.TracerProvider
	logger *slog.Logger
}

// Wire opens the stores and builds the sync, retrieval and import layers.
// Provider construction failures are logged and leave that capability
// unconfigured; store failures are fatal.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, logger: logger}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "srs",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	app.tracer = tp

	storeCfg := storageConfig(cfg)
	if storeCfg.Backend == "sqlite" {
		if err := os.MkdirAll(storeCfg.DataDir, 0o755); err != nil {
			_ = app.Close()
			return nil, srserr.Errorf(srserr.CodeCLISetupFailure, "creating data directory: %w", err)
		}
	}

	// 1. Relational stores.
	stores, err := store.NewStores(storeCfg)
	if err != nil {
		_ = app.Close()
		return nil, srserr.Wrapf(err, srserr.CodeCLISetupFailure, "opening %s storage", storeCfg.Backend)
	}
	app.Stores = stores

	// 2. Vector index. A nil index runs retrieval keyword-only.
	idx, err := store.NewVectorIndex(storeCfg)
	if err != nil {
		_ = app.Close()
		return nil, srserr.Wrapf(err, srserr.CodeCLISetupFailure, "opening %s vector index", storeCfg.VectorBackend)
	}
	if idx != nil {
		app.Index = idx
	} else {
		logger.Warn("vector index disabled, retrieval is keyword-only")
	}

	// 3. Providers.
	if emb := newEmbedder(cfg, logger); emb != nil {
		app.Embedder = emb
	}
	if comp := newCompleter(cfg, logger); comp != nil {
		app.Completer = comp
	}

	// 4. Sync, retrieval and import.
	app.Sync = vectorsync.NewService(stores.Artifacts, app.Index, app.Embedder, vectorsync.Config{
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger,
	})
	app.Dispatcher = vectorsync.NewDispatcher(app.Sync, vectorsync.DispatcherConfig{
		Workers:   cfg.Sync.Workers,
		QueueSize: cfg.Sync.QueueSize,
		Logger:    logger,
	})
	app.Imports = batchimport.NewManager(stores.Artifacts, app.Sync, batchimport.Config{
		Retention: cfg.Import.Retention,
		MaxErrors: cfg.Import.MaxErrors,
		Logger:    logger,
	})
	app.Artifacts = artifacts.NewService(stores.Artifacts, app.Dispatcher, logger)

	threshold := cfg.Search.Threshold
	app.Engine = retrieval.NewEngine(retrieval.Deps{
		Artifacts: stores.Artifacts,
		History:   stores.History,
		Index:     app.Index,
		Embedder:  app.Embedder,
		Completer: app.Completer,
	}, retrieval.Config{
		TopK:              cfg.Search.TopK,
		Threshold:         &threshold,
		TitleSimilarity:   cfg.Search.TitleSimilarity,
		ContentSimilarity: cfg.Search.ContentSimilarity,
		Logger:            logger,
	})

	app.Monitor = server.NewMonitor(server.MonitorDeps{
		Database:  stores.Artifacts,
		Artifacts: stores.Artifacts,
		History:   stores.History,
		Index:     app.Index,
		Embedder:  app.Embedder,
		Completer: app.Completer,
	})
	return app, nil
}

// NewServer builds the HTTP server over the wired services.
func (a *App) NewServer() (*server.Server, error) {
	svc, err := server.NewServices(a.Artifacts, a.Engine, a.Stores.History, a.Imports, a.Sync, a.Monitor)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		ListenAddr:  a.Config.Server.Listen,
		CORSOrigins: a.Config.Server.CORSOrigins,
		Logger:      a.logger,
	}, svc)
}

// Close drains background work, then releases stores and exporters.
func (a *App) Close() error {
	var errs []error
	if a.Imports != nil {
		if err := a.Imports.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func storageConfig(cfg *config.Config) *store.StorageConfig {
	return &store.StorageConfig{
		Backend:          cfg.Storage.Backend,
		DataDir:          cfg.Storage.DataDir,
		PostgresDSN:      cfg.Storage.PostgresDSN,
		VectorBackend:    cfg.Vector.Backend,
		VectorDimensions: cfg.Vector.Dimensions,
		QdrantHost:       cfg.Vector.Qdrant.Host,
		QdrantPort:       cfg.Vector.Qdrant.Port,
		QdrantCollection: cfg.Vector.Qdrant.Collection,
	}
}

// embedderFactory builds an embedder producing vectors of dims dimensions.
type embedderFactory func(ec config.EmbeddingConfig, dims int) (provider.Embedder, error)

// embedderFactories maps embedding.provider values to constructors.
// Declared as a variable so tests can inject failing factories.
var embedderFactories = map[string]embedderFactory{
	"openai": func(ec config.EmbeddingConfig, dims int) (provider.Embedder, error) {
		return openaiprov.NewEmbedder(openaiprov.Config{
			APIKey: ec.APIKey, BaseURL: ec.BaseURL, Model: ec.Model,
			Dimensions: dims, BatchSize: ec.BatchSize, Timeout: ec.Timeout,
		})
	},
	"google": func(ec config.EmbeddingConfig, dims int) (provider.Embedder, error) {
		return googleprov.NewEmbedder(googleprov.Config{
			APIKey: ec.APIKey, BaseURL: ec.BaseURL, Model: ec.Model,
			Dimensions: dims, BatchSize: ec.BatchSize, Timeout: ec.Timeout,
		})
	},
	"local": func(_ config.EmbeddingConfig, dims int) (provider.Embedder, error) {
		return localprov.NewEmbedder(dims)
	},
}

type completerFactory func(lc config.LLMConfig) (provider.Completer, error)

var completerFactories = map[string]completerFactory{
	"openai": func(lc config.LLMConfig) (provider.Completer, error) {
		return openaiprov.NewCompleter(openaiprov.Config{
			APIKey: lc.APIKey, BaseURL: lc.BaseURL, Model: lc.Model, MaxTokens: lc.MaxTokens,
		})
	},
	"anthropic": func(lc config.LLMConfig) (provider.Completer, error) {
		return anthropicprov.NewCompleter(anthropicprov.Config{
			APIKey: lc.APIKey, BaseURL: lc.BaseURL, Model: lc.Model, MaxTokens: lc.MaxTokens,
		})
	},
	"google": func(lc config.LLMConfig) (provider.Completer, error) {
		return googleprov.NewCompleter(googleprov.Config{
			APIKey: lc.APIKey, BaseURL: lc.BaseURL, Model: lc.Model, MaxTokens: lc.MaxTokens,
		})
	},
}

// newEmbedder returns nil when embedding is disabled or cannot be set up.
func newEmbedder(cfg *config.Config, logger *slog.Logger) provider.Embedder {
	name := cfg.Embedding.Provider
	if name == "none" {
		return nil
	}
	factory, ok := embedderFactories[name]
	if !ok {
		logger.Warn("unknown embedding provider, skipping", "provider", name)
		return nil
	}
	emb, err := factory(cfg.Embedding, cfg.Vector.Dimensions)
	if err != nil {
		logger.Warn("failed to create embedding provider", "provider", name, "error", err)
		return nil
	}
	tracker, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		logger.Warn("failed to create health tracker", "provider", name, "error", err)
		return emb
	}
	logger.Info("registered embedding provider", "provider", name, "dimensions", emb.Dimensions())
	return provider.NewTrackedEmbedder(emb, tracker)
}

// newCompleter returns nil when answers are disabled or cannot be set up.
func newCompleter(cfg *config.Config, logger *slog.Logger) provider.Completer {
	name := cfg.LLM.Provider
	if name == "none" {
		return nil
	}
	factory, ok := completerFactories[name]
	if !ok {
		logger.Warn("unknown llm provider, skipping", "provider", name)
		return nil
	}
	comp, err := factory(cfg.LLM)
	if err != nil {
		logger.Warn("failed to create llm provider", "provider", name, "error", err)
		return nil
	}
	tracker, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		logger.Warn("failed to create health tracker", "provider", name, "error", err)
		return comp
	}
	logger.Info("registered llm provider", "provider", name)
	return provider.NewTrackedCompleter(comp, tracker)
}
