package infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies this process in exported traces.
const ServiceName = "imagestudio"

// NewTracerProvider builds the tracer provider selected by cfg.TracesExporter.
// "otlp" ships spans over OTLP/HTTP using the standard OTEL_EXPORTER_OTLP_*
// variables, "stdout" writes them as JSON to w. "none" or an empty value
// returns a nil provider and tracing stays a no-op.
func NewTracerProvider(ctx context.Context, cfg *Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	switch strings.ToLower(strings.TrimSpace(cfg.TracesExporter)) {
	case "", "none":
		return nil, nil
	case "otlp":
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		exporter = exp
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported OTEL_TRACES_EXPORTER %q", cfg.TracesExporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			"",
			attribute.String("service.name", ServiceName),
			attribute.String("deployment.environment", cfg.AppEnv),
		)),
	), nil
}
