// Package tracing exports run, task and step spans over OTLP/HTTP when
// OTEL_EXPORTER_OTLP_ENDPOINT is set.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/lambdamechanic/trudger-sub000"

// Setup installs a global tracer provider when an OTLP endpoint is
// configured. The returned shutdown flushes pending spans and is always
// safe to call.
func Setup(ctx context.Context, getenv func(string) string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	endpoint := strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return noop, nil
	}

	options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(trimScheme(endpoint))}
	if !strings.HasPrefix(endpoint, "https://") {
		options = append(options, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return noop, err
	}

	serviceName := strings.TrimSpace(getenv("OTEL_SERVICE_NAME"))
	if serviceName == "" {
		serviceName = "trudger"
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimSuffix(endpoint, "/")
}

func tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartRun opens the root span for one process run.
func StartRun(ctx context.Context) (context.Context, oteltrace.Span) {
	return tracer().Start(ctx, "trudger.run")
}

// StartTask opens a span covering one task's solve/review cycle.
func StartTask(ctx context.Context, taskID string) (context.Context, oteltrace.Span) {
	return tracer().Start(ctx, "trudger.task", oteltrace.WithAttributes(attribute.String("trudger.task.id", taskID)))
}

// StartStep opens a span for one blocking external call.
func StartStep(ctx context.Context, step string, taskID string) (context.Context, oteltrace.Span) {
	return tracer().Start(ctx, "trudger.step", oteltrace.WithAttributes(
		attribute.String("trudger.step", step),
		attribute.String("trudger.task.id", taskID),
	))
}

// EndWithOutcome records the exit code and reason on span and ends it.
func EndWithOutcome(span oteltrace.Span, code int, reason string) {
	span.SetAttributes(
		attribute.Int("trudger.exit_code", code),
		attribute.String("trudger.reason", reason),
	)
	if code != 0 {
		span.SetStatus(codes.Error, reason)
	}
	span.End()
}
