package observability

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
)

// Propagator carries W3C trace context and baggage across the event queue
// and into Kafka headers.
var Propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// InjectTraceContext returns the span context of ctx as a header carrier, or
// nil when ctx carries no span.
func InjectTraceContext(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	Propagator.Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return carrier
}

// ExtractTraceContext restores a carrier produced by InjectTraceContext onto ctx.
func ExtractTraceContext(ctx context.Context, carrier map[string]string) context.Context {
	if len(carrier) == 0 {
		return ctx
	}
	return Propagator.Extract(ctx, propagation.MapCarrier(carrier))
}
