// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/artifacts"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/batchimport"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/server"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store/memory"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/vectorsync"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec registers every route over empty in-memory stores and returns
// the OpenAPI document huma derives from the handler types. No handler runs.
func generateSpec() ([]byte, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	arts := memory.NewArtifactStore()
	hist := memory.NewHistoryStore()

	// Keyword-only: no index, no embedder.
	syncer := vectorsync.NewService(arts, nil, nil, vectorsync.Config{Logger: logger})
	dispatcher := vectorsync.NewDispatcher(syncer, vectorsync.DispatcherConfig{Workers: 1, Logger: logger})
	defer dispatcher.Close()
	imports := batchimport.NewManager(arts, syncer, batchimport.Config{Logger: logger})
	defer func() { _ = imports.Close() }()

	engine := retrieval.NewEngine(retrieval.Deps{Artifacts: arts, History: hist}, retrieval.Config{Logger: logger})
	monitor := server.NewMonitor(server.MonitorDeps{Database: arts, Artifacts: arts, History: hist})

	svc, err := server.NewServices(artifacts.NewService(arts, dispatcher, logger), engine, hist, imports, syncer, monitor)
	if err != nil {
		return nil, err
	}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Logger: logger}, svc)
	if err != nil {
		return nil, srserr.Errorf(srserr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer srv.Close()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
