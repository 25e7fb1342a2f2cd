package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func startSpan(t *testing.T) (context.Context, trace.Span) {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("logger-test").Start(context.Background(), "run")
}

func TestFromContext(t *testing.T) {
	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))

	assert.NotNil(t, FromContext(context.Background()))
	wrongType := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(wrongType))
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-1")
	l.Info("hello")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Same(t, l, FromContext(ctx))
	assert.Equal(t, "req-1", recorded.All()[0].ContextMap()["request_id"])
}

func TestContextValues_Missing(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetOrganizationID(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestTraceIDs_WithSpan(t *testing.T) {
	ctx, span := startSpan(t)
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), GetSpanID(ctx))
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	ctx, span := startSpan(t)
	defer span.End()
	WithTraceContext(ctx, base).Info("traced")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
	assert.Equal(t, GetSpanID(ctx), fields["span_id"])
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx, span := startSpan(t)
	defer span.End()
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")
	ctx = WithOrganizationID(ctx, "org-3")

	WithLogger(ctx, zap.New(core)).With(zap.String("scenario_id", "baseline")).Warn("excluded", zap.String("kind", "line_item"))

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "org-3", fields["organization_id"])
	assert.Equal(t, "baseline", fields["scenario_id"])
	assert.Equal(t, "line_item", fields["kind"])
	assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
}

func TestL_UsesContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	cl := L(ctx)
	cl.Debug("d")
	cl.Info("i")
	cl.Error("e")

	assert.Equal(t, 3, recorded.Len())
	assert.NotNil(t, cl.Zap())
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("nothing")
		cl.With(zap.Int("n", 1)).Warn("still nothing")
	})
}
