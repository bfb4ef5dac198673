package telemetry_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"gitflow.dev/gitflow/internal/telemetry"
)

func TestInit(t *testing.T) {
	t.Run("installs a no-op provider when disabled", func(t *testing.T) {
		t.Setenv("GITFLOW_OTEL", "")
		t.Setenv("GITFLOW_OTEL_FILE", "")

		shutdown, err := telemetry.Init(context.Background(), "test")
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))

		_, span := telemetry.Start(context.Background(), "noop")
		require.False(t, span.SpanContext().IsValid())
		span.End()
	})
}

func TestSpans(t *testing.T) {
	t.Run("exports spans with recorded errors", func(t *testing.T) {
		var buf bytes.Buffer
		tp, err := telemetry.NewProvider(context.Background(), &buf, "test")
		require.NoError(t, err)
		prev := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		t.Cleanup(func() { otel.SetTracerProvider(prev) })

		_, span := telemetry.Start(context.Background(), "finish.merge", attribute.String("gitflow.branch", "release/1.2.0"))
		telemetry.End(span, errors.New("conflict"))
		require.NoError(t, tp.Shutdown(context.Background()))

		out := buf.String()
		require.Contains(t, out, "finish.merge")
		require.Contains(t, out, "release/1.2.0")
		require.Contains(t, out, "conflict")
	})
}
