// Package observability wires OpenTelemetry tracing for execution runs.
package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/canvasflow/canvasflow/internal/types"
)

const serviceName = "canvasflow"

// InitTracing builds the tracer provider for execution runs. When enabled,
// spans are exported synchronously to w as they end; a CLI run is short-lived
// enough that batching would only delay output. When disabled the returned
// provider carries no exporter and records nothing, so callers can span
// unconditionally.
func InitTracing(enabled bool, w io.Writer) (*sdktrace.TracerProvider, error) {
	if !enabled {
		return sdktrace.NewTracerProvider(), nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, types.WrapError(types.TRACING_INIT_FAILED, "failed to create trace exporter", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, types.WrapError(types.TRACING_INIT_FAILED, "failed to create trace resource", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	), nil
}

// ShutdownTracing flushes and shuts down the tracer provider.
func ShutdownTracing(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}
	if err := provider.Shutdown(ctx); err != nil {
		return types.WrapError(types.TRACING_SHUTDOWN_FAILED, "failed to shutdown tracer provider", err)
	}
	return nil
}
