package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/tracing"
)

var usecaseTracer = otel.Tracer("livebaz/internal/usecase")

func startUsecaseSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracing.Child(ctx, usecaseTracer, name, opts...)
}
