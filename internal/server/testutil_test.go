// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/artifacts"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/batchimport"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider/local"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/retrieval"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/server"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store/memory"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/vectorsync"
	"github.com/stretchr/testify/require"
)

const testDims = 32

// stack is a fully wired server over in-memory stores.
type stack struct {
	srv        *server.Server
	artifacts  *memory.ArtifactStore
	history    *memory.HistoryStore
	index      *memory.VectorIndex
	dispatcher *vectorsync.Dispatcher
	imports    *batchimport.Manager
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStack(t *testing.T, rl server.RateLimitConfig) *stack {
	t.Helper()
	logger := discardLogger()

	st := &stack{
		artifacts: memory.NewArtifactStore(),
		history:   memory.NewHistoryStore(),
	}
	idx, err := memory.NewVectorIndex(testDims)
	require.NoError(t, err)
	st.index = idx
	emb, err := local.NewEmbedder(testDims)
	require.NoError(t, err)

	syncer := vectorsync.NewService(st.artifacts, idx, emb, vectorsync.Config{Logger: logger})
	st.dispatcher = vectorsync.NewDispatcher(syncer, vectorsync.DispatcherConfig{Workers: 1, Logger: logger})
	st.imports = batchimport.NewManager(st.artifacts, syncer, batchimport.Config{Logger: logger})
	t.Cleanup(func() {
		st.imports.Close()
		st.dispatcher.Close()
	})

	engine := retrieval.NewEngine(retrieval.Deps{
		Artifacts: st.artifacts,
		History:   st.history,
		Index:     idx,
		Embedder:  emb,
	}, retrieval.Config{Logger: logger})

	monitor := server.NewMonitor(server.MonitorDeps{
		Database:  st.artifacts,
		Artifacts: st.artifacts,
		History:   st.history,
		Index:     idx,
		Embedder:  emb,
	})

	svc, err := server.NewServices(
		artifacts.NewService(st.artifacts, st.dispatcher, logger),
		engine,
		st.history,
		st.imports,
		syncer,
		monitor,
	)
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		RateLimit:  rl,
		Logger:     logger,
	}, svc)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	st.srv = srv
	return st
}

func (st *stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	st.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
