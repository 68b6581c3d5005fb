package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/inventory/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	shutdown, err := SetupTracing(context.Background(), &config.Config{OtelEndpoint: "localhost:4318"})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "setup-check")
	assert.True(t, span.SpanContext().IsValid())
	assert.Contains(t, InjectTraceContext(trace.ContextWithSpan(context.Background(), span)), "traceparent")
	span.End()

	// no collector is listening, so the flush result is not checked
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestTraceContext_RoundTrip(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	carrier := InjectTraceContext(ctx)
	require.Contains(t, carrier, "traceparent")

	restored := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), carrier))
	assert.Equal(t, sc.TraceID(), restored.TraceID())
	assert.Equal(t, sc.SpanID(), restored.SpanID())
}

func TestTraceContext_NoSpan(t *testing.T) {
	assert.Nil(t, InjectTraceContext(context.Background()))

	ctx := context.Background()
	assert.Equal(t, ctx, ExtractTraceContext(ctx, nil))
}
