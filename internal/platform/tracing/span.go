// Package tracing holds the span helper shared by the request and use case
// layers.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Child starts a span only when ctx already carries a sampled parent, so
// background loops and untraced requests do not produce root spans. Without
// a parent it returns ctx and the non-recording span already in it.
func Child(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() || !parent.IsRecording() {
		return ctx, parent
	}
	return tracer.Start(ctx, name, opts...)
}
