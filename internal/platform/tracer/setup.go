package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ExportConfig selects where spans go. An empty Endpoint disables export.
type ExportConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global OTLP/gRPC tracer provider. Without an endpoint it
// leaves the global no-op provider in place and returns a no-op shutdown.
func Setup(ctx context.Context, cfg ExportConfig) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return noopShutdown, fmt.Errorf("otel exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return noopShutdown, fmt.Errorf("otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
