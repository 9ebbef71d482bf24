// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package provider

import (
	"sync"
	"time"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
	"github.com/PluginsX/SemanticRetrievalSystem/pkg/health"
)

// HealthMetrics is the snapshot type reported by HealthTracker.
type HealthMetrics = health.Metrics

// DefaultHealthCooldown is how long an embedding or completion provider is
// reported unavailable after a failed call.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker records call outcomes for one provider. After a failure the
// provider reads as unavailable until the cooldown passes or a call
// succeeds. Callers still go through during the cooldown; the tracker only
// drives what /health and the vector leg of retrieval report.
type HealthTracker struct {
	mu       sync.RWMutex
	cooldown time.Duration
	now      func() time.Time

	healthy   bool
	failedAt  time.Time
	lastErr   string
	failures  int64
	successes int64
	succeeded time.Time
}

func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, srserr.Errorf(srserr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{healthy: true, cooldown: cooldown, now: time.Now}, nil
}

// available requires h.mu held.
func (h *HealthTracker) available() bool {
	return h.healthy || h.now().Sub(h.failedAt) >= h.cooldown
}

// IsHealthy reports whether the last call succeeded or the cooldown since the
// last failure has elapsed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.available()
}

func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.successes++
	h.succeeded = h.now()
	h.mu.Unlock()
}

// RecordFailure starts a cooldown. err may be nil.
func (h *HealthTracker) RecordFailure(err error) {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.now()
	h.failures++
	h.lastErr = ""
	if err != nil {
		h.lastErr = err.Error()
	}
	h.mu.Unlock()
}

// SetNowFunc overrides the clock (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.now = fn
	h.mu.Unlock()
}

// HealthMetrics returns a copy of the tracker state.
func (h *HealthTracker) HealthMetrics() HealthMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := HealthMetrics{
		Available:    h.available(),
		FailureCount: h.failures,
		SuccessCount: h.successes,
	}
	if h.failures > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
		m.LastError = h.lastErr
	}
	if h.successes > 0 {
		t := h.succeeded
		m.LastSuccessAt = &t
	}
	if !h.healthy {
		until := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}
