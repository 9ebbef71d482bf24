// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package server

import (
	"context"
	"time"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/provider"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/store"
	"github.com/PluginsX/SemanticRetrievalSystem/pkg/health"
)

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	Status  health.Status   `json:"status" enum:"healthy,unhealthy,unavailable,configured" doc:"Component state"`
	Name    string          `json:"name,omitempty" doc:"Backend or provider name"`
	Error   string          `json:"error,omitempty" doc:"Last error, if unhealthy"`
	Metrics *health.Metrics `json:"metrics,omitempty" doc:"Provider health tracking"`
}

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status     health.Status              `json:"status" enum:"healthy,degraded" doc:"Overall state"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// MetricsReport is the body of GET /api/v1/metrics.
type MetricsReport struct {
	UptimeSeconds   float64 `json:"uptime_seconds"`
	ArtifactCount   int64   `json:"artifact_count"`
	SearchCount     int64   `json:"search_count"`
	AvgResponseTime float64 `json:"avg_response_time" doc:"Mean over successful searches, in seconds"`
	VectorCount     int64   `json:"vector_count"`
	VectorAvailable bool    `json:"vector_available"`
}

// Pinger checks the relational store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ArtifactCounter counts live artifacts.
type ArtifactCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// HistoryStats summarizes the search log.
type HistoryStats interface {
	Stats(ctx context.Context) (store.HistoryStats, error)
}

// MonitorDeps are the components a Monitor inspects. Index, Embedder and
// Completer may be nil.
type MonitorDeps struct {
	Database  Pinger
	Artifacts ArtifactCounter
	History   HistoryStats
	Index     store.VectorIndex
	Embedder  provider.Embedder
	Completer provider.Completer
}

// Monitor implements SystemService.
type Monitor struct {
	deps    MonitorDeps
	started time.Time
	now     func() time.Time
}

func NewMonitor(deps MonitorDeps) *Monitor {
	return &Monitor{deps: deps, started: time.Now(), now: time.Now}
}

// SetNowFunc overrides the clock (for testing).
func (m *Monitor) SetNowFunc(fn func() time.Time) {
	m.now = fn
	m.started = fn()
}

// Health reports healthy only when both stores answer.
func (m *Monitor) Health(ctx context.Context) HealthReport {
	comps := map[string]ComponentHealth{
		"database":          m.database(ctx),
		"vector_store":      m.vectorStore(ctx),
		"embedding_service": providerHealth(m.deps.Embedder, health.StatusHealthy),
		"llm_service":       providerHealth(m.deps.Completer, health.StatusConfigured),
	}
	statuses := make(map[string]health.Status, len(comps))
	for name, c := range comps {
		statuses[name] = c.Status
	}
	return HealthReport{
		Status:     health.Overall(statuses, "database", "vector_store"),
		Timestamp:  m.now().UTC(),
		Components: comps,
	}
}

func (m *Monitor) database(ctx context.Context) ComponentHealth {
	if m.deps.Database == nil {
		return ComponentHealth{Status: health.StatusUnavailable}
	}
	if err := m.deps.Database.Ping(ctx); err != nil {
		return ComponentHealth{Status: health.StatusUnhealthy, Error: err.Error()}
	}
	return ComponentHealth{Status: health.StatusHealthy}
}

func (m *Monitor) vectorStore(ctx context.Context) ComponentHealth {
	if m.deps.Index == nil {
		return ComponentHealth{Status: health.StatusUnavailable}
	}
	if _, err := m.deps.Index.Count(ctx); err != nil {
		return ComponentHealth{Status: health.StatusUnhealthy, Error: err.Error()}
	}
	return ComponentHealth{Status: health.StatusHealthy}
}

type namer interface{ Name() string }

func providerHealth(p namer, ok health.Status) ComponentHealth {
	if p == nil {
		return ComponentHealth{Status: health.StatusUnavailable}
	}
	c := ComponentHealth{Status: ok, Name: p.Name()}
	if a, tracked := p.(provider.Availability); tracked {
		hm := a.HealthMetrics()
		c.Metrics = &hm
		if !a.Available() {
			c.Status = health.StatusUnhealthy
			c.Error = hm.LastError
		}
	}
	return c
}

// Metrics gathers counts from the stores. A failing vector index is reported
// as unavailable rather than failing the call.
func (m *Monitor) Metrics(ctx context.Context) (*MetricsReport, error) {
	out := &MetricsReport{UptimeSeconds: m.now().Sub(m.started).Seconds()}

	n, err := m.deps.Artifacts.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	out.ArtifactCount = n

	stats, err := m.deps.History.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out.SearchCount = stats.TotalSearches
	out.AvgResponseTime = stats.AvgResponseTime

	if m.deps.Index != nil {
		if vc, err := m.deps.Index.Count(ctx); err == nil {
			out.VectorCount = vc
			out.VectorAvailable = true
		}
	}
	return out, nil
}
