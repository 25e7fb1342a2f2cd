package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/agrodash/backend/internal/infrastructure/telemetry"
)

// recordSpans installs an in-memory span recorder as the global provider.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrOf(t *testing.T, attrs []attribute.KeyValue, key string) attribute.Value {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value
		}
	}
	t.Fatalf("attribute %q not set", key)
	return attribute.Value{}
}

func TestStartSpan(t *testing.T) {
	sr := recordSpans(t)
	org := uuid.New()

	ctx, span := telemetry.StartSpan(context.Background(), "projection.run",
		"organization_id", org,
		"harvests", 3,
	)
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "projection.run", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, org.String(), attrOf(t, spans[0].Attributes(), "organization_id").AsString())
	assert.Equal(t, int64(3), attrOf(t, spans[0].Attributes(), "harvests").AsInt64())
}

func TestAnnotate(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "projection.run")
	telemetry.Annotate(span,
		"grand_total", decimal.RequireFromString("1500.25"),
		"cache_hit", true,
		42, "skipped",
		"dangling",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	assert.Len(t, attrs, 2)
	assert.Equal(t, "1500.25", attrOf(t, attrs, "grand_total").AsString())
	assert.True(t, attrOf(t, attrs, "cache_hit").AsBool())
}

func TestFail(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "projection.fetch")
	telemetry.Fail(span, errors.New("debt registry unavailable"))
	span.End()

	failed := sr.Ended()[0]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "debt registry unavailable", failed.Status().Description)
	require.Len(t, failed.Events(), 1)

	_, span = telemetry.StartSpan(context.Background(), "projection.fetch")
	telemetry.Fail(span, nil)
	span.End()
	assert.Equal(t, codes.Unset, sr.Ended()[1].Status().Code)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.TraceID(context.Background()))
}
