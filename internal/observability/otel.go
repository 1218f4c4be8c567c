package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"wayfarer/internal/config"
)

// InitOTel installs an in-process tracer provider so frame ticks and LLM
// calls can be wrapped in spans even without a collector configured. Unlike
// the teacher's OTLP-exporting setup, this engine runs headless with no
// network telemetry sink by default; a collector can be wired later by
// swapping the batcher, but nothing in the core requires one.
func InitOTel(ctx context.Context, obs config.TelemetryConfig) (func(context.Context) error, error) {
	if !obs.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	name := obs.ServiceName
	if name == "" {
		name = "wayfarer"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(name), attribute.String("component", "autonomous-engine")),
	)
	if err != nil {
		return nil, fmt.Errorf("init resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}, nil
}
