// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package provider

import (
	"context"
)

// Availability is implemented by providers that track their own health.
type Availability interface {
	Available() bool
	HealthMetrics() HealthMetrics
}

// IsAvailable reports whether p is usable. Providers without health tracking
// are always considered available.
func IsAvailable(p any) bool {
	if a, ok := p.(Availability); ok {
		return a.Available()
	}
	return p != nil
}

// TrackedEmbedder records the outcome of every call on a HealthTracker. It
// never blocks calls itself; callers consult Available to decide whether to
// skip the provider.
type TrackedEmbedder struct {
	inner  Embedder
	health *HealthTracker
}

var (
	_ Embedder     = (*TrackedEmbedder)(nil)
	_ Availability = (*TrackedEmbedder)(nil)
)

func NewTrackedEmbedder(inner Embedder, health *HealthTracker) *TrackedEmbedder {
	return &TrackedEmbedder{inner: inner, health: health}
}

func (t *TrackedEmbedder) Name() string    { return t.inner.Name() }
func (t *TrackedEmbedder) Dimensions() int { return t.inner.Dimensions() }

func (t *TrackedEmbedder) Available() bool              { return t.health.IsHealthy() }
func (t *TrackedEmbedder) HealthMetrics() HealthMetrics { return t.health.HealthMetrics() }

func (t *TrackedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := t.inner.Embed(ctx, text)
	t.record(ctx, err)
	return v, err
}

func (t *TrackedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	v, err := t.inner.EmbedBatch(ctx, texts)
	t.record(ctx, err)
	return v, err
}

func (t *TrackedEmbedder) record(ctx context.Context, err error) {
	switch {
	case err == nil:
		t.health.RecordSuccess()
	case ctx.Err() != nil:
		// caller gave up; says nothing about the provider
	default:
		t.health.RecordFailure(err)
	}
}

// TrackedCompleter is the Completer counterpart of TrackedEmbedder.
type TrackedCompleter struct {
	inner  Completer
	health *HealthTracker
}

var (
	_ Completer    = (*TrackedCompleter)(nil)
	_ Availability = (*TrackedCompleter)(nil)
)

func NewTrackedCompleter(inner Completer, health *HealthTracker) *TrackedCompleter {
	return &TrackedCompleter{inner: inner, health: health}
}

func (t *TrackedCompleter) Name() string                 { return t.inner.Name() }
func (t *TrackedCompleter) Available() bool              { return t.health.IsHealthy() }
func (t *TrackedCompleter) HealthMetrics() HealthMetrics { return t.health.HealthMetrics() }

func (t *TrackedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	out, err := t.inner.Complete(ctx, req)
	switch {
	case err == nil:
		t.health.RecordSuccess()
	case ctx.Err() == nil:
		t.health.RecordFailure(err)
	}
	return out, err
}
