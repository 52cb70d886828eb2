package httpapi

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/tracing"
)

var apiTracer = otel.Tracer("livebaz/internal/interfaces/httpapi")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracing.Child(ctx, apiTracer, name)
}
