package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan(t *testing.T) {
	t.Run("should be a no-op without a tracer", func(t *testing.T) {
		SetTracer(nil)
		ctx := context.Background()
		got, span := StartSpan(ctx, "noop")
		defer span.End()

		assert.Equal(t, ctx, got)
		assert.Empty(t, GetTraceID(got))
		assert.Empty(t, GetTraceParent(got))
	})

	t.Run("should record spans with a tracer", func(t *testing.T) {
		exporter := tracetest.NewInMemoryExporter()
		provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		SetTracer(provider.Tracer("test"))
		defer SetTracer(nil)

		ctx, span := StartSpan(context.Background(), "matching.Resolver.Rank")
		assert.Len(t, GetTraceID(ctx), 32)
		assert.Len(t, GetSpanID(ctx), 16)
		assert.Contains(t, GetTraceParent(ctx), GetTraceID(ctx))

		RecordError(span, errors.New("boom"))
		RecordError(span, nil)
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "matching.Resolver.Rank", spans[0].Name)
		assert.Len(t, spans[0].Events, 1)
	})
}

func TestSetup(t *testing.T) {
	t.Run("should reject unknown protocols", func(t *testing.T) {
		_, err := Setup(context.Background(), Config{ServiceName: "clover", Exporter: "otlp", Protocol: "carrier-pigeon"})
		assert.Error(t, err)
	})

	t.Run("should install a discarding provider", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), Config{ServiceName: "clover", Exporter: "none"})
		require.NoError(t, err)
		defer SetTracer(nil)

		ctx, span := StartSpan(context.Background(), "test")
		span.End()
		assert.NotEmpty(t, GetTraceID(ctx))
		assert.NoError(t, shutdown(context.Background()))
	})
}
