// Package telemetry provides OpenTelemetry tracing for git-flow.
//
// Tracing is off by default and installs a no-op provider.
//
//	GITFLOW_OTEL=stdout       pretty-print spans to stderr
//	GITFLOW_OTEL_FILE=<path>  write spans to a file instead
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "gitflow.dev/gitflow"

// Shutdown flushes pending spans
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Enabled reports whether tracing was requested through the environment
func Enabled() bool {
	return os.Getenv("GITFLOW_OTEL") == "stdout" || os.Getenv("GITFLOW_OTEL_FILE") != ""
}

// Init installs the global tracer provider. With tracing disabled it installs
// a no-op provider.
func Init(ctx context.Context, version string) (Shutdown, error) {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		return noopShutdown, nil
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if path := os.Getenv("GITFLOW_OTEL_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
		}
		w, closer = f, f
	}

	tp, err := NewProvider(ctx, w, version)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}, nil
}

// NewProvider builds a tracer provider exporting synchronously to w
func NewProvider(ctx context.Context, w io.Writer, version string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("git-flow"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exp),
	), nil
}

// Tracer returns the git-flow tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationScope)
}

// Start opens a span named name
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
