package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ExporterConfig selects the OTLP/HTTP collector traces are shipped to.
type ExporterConfig struct {
	// Endpoint is the collector host:port. Empty disables exporting.
	Endpoint string
	// Insecure switches to plain HTTP, for local collectors.
	Insecure bool
}

// NewTracerProvider builds a batching tracer provider that exports to the
// configured OTLP endpoint. It returns nil when no endpoint is configured so
// callers can pass the result straight into Config.TracerProvider.
func NewTracerProvider(ctx context.Context, cfg ExporterConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, nil
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
	}
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithBatcher(exporter)}
	if res != nil {
		tpOpts = append(tpOpts, sdktrace.WithResource(res))
	}
	return sdktrace.NewTracerProvider(tpOpts...), nil
}
