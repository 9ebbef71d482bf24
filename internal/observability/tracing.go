// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

// Package observability sets up OpenTelemetry tracing and provides span
// helpers for the sync, retrieval and import paths.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

const TracerName = "github.com/PluginsX/SemanticRetrievalSystem"

// TracingConfig configures the OTLP exporter. An empty OTLPEndpoint disables
// export and leaves the global no-op provider in place.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // host:port of an OTLP gRPC collector
	SampleRate     float64
}

// TracerProvider wraps the SDK provider so callers can shut it down.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// InitTracing installs a global tracer provider exporting to cfg.OTLPEndpoint.
func InitTracing(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "srs"
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, srserr.Wrapf(err, srserr.CodeServerStartFailure, "creating OTLP exporter")
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, srserr.Wrapf(err, srserr.CodeServerStartFailure, "creating trace resource")
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &TracerProvider{provider: tp}, nil
}

// Shutdown flushes pending spans. It is a no-op when tracing is disabled.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Enabled reports whether spans are exported.
func (tp *TracerProvider) Enabled() bool {
	return tp != nil && tp.provider != nil
}

// StartSpan starts an internal span on the global tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartRetrieveSpan starts the span covering one hybrid retrieval.
func StartRetrieveSpan(ctx context.Context, topK int, threshold float64, categories []string) (context.Context, trace.Span) {
	return StartSpan(ctx, "retrieval.retrieve",
		attribute.Int("retrieval.top_k", topK),
		attribute.Float64("retrieval.threshold", threshold),
		attribute.StringSlice("retrieval.categories", categories),
	)
}

// RecordRetrieveResult records how the result set was assembled.
func RecordRetrieveResult(span trace.Span, vectorHits, keywordHits, returned int) {
	span.SetAttributes(
		attribute.Int("retrieval.vector_hits", vectorHits),
		attribute.Int("retrieval.keyword_hits", keywordHits),
		attribute.Int("retrieval.returned", returned),
	)
}

// RecordError records err on span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if code := srserr.CodeOf(err); code != "" {
		span.SetAttributes(attribute.String("error.code", string(code)))
	}
}

// RecordOutcome marks span failed when ok is false.
func RecordOutcome(span trace.Span, ok bool, msg string) {
	span.SetAttributes(attribute.Bool("outcome.ok", ok))
	if !ok {
		span.SetStatus(codes.Error, msg)
	}
}
