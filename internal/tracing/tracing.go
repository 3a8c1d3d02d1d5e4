// Package tracing wires an OpenTelemetry tracer provider for the engine
// and offers a small per-phase span helper so the retrieval pipeline's
// five phases (LAND, ANCHOR, EXPAND, DISTILL, TRACE) and the
// consolidation pipeline's two branches show up as nested spans.
//
// The engine ships no OTLP exporter dependency: when tracing is enabled,
// spans are still created, sampled, and threaded through context (so
// internal/logging can enrich log lines with trace/span ids), they are
// simply not shipped to a collector. Wiring a real exporter is a matter of
// registering a sdktrace.SpanExporter with the provider built here.
package tracing

import (
	"context"
	"fmt"

	"github.com/aziham/memento/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Init configures the global tracer provider per cfg and returns a
// shutdown func. If cfg.Enabled is false, the global no-op provider is
// left in place and Init is a no-op.
func Init(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}, nil
}

// tracerName is the engine's fixed instrumentation name.
const tracerName = "github.com/aziham/memento"

// StartPhase starts a span named after one retrieval or consolidation
// phase, tagging it with the given attributes.
func StartPhase(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, phase, trace.WithAttributes(attrs...))
}
