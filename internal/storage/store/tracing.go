package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/localstore/internal/tracing"
)

const tracerName = "localstore.store"

// startSpan starts a span for a store operation. key is empty for
// namespace-wide operations.
func startSpan(ctx context.Context, op, namespace, key string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "localstore."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrNamespace, namespace),
		attribute.String(tracing.AttrOperation, op),
	)
	if key != "" {
		span.SetAttributes(attribute.String(tracing.AttrKey, key))
	}
	return ctx, span
}

// endSpan records the outcome and ends the span
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(tracing.AttrStatus, "error"))
	} else {
		span.SetAttributes(attribute.String(tracing.AttrStatus, "ok"))
	}
	span.End()
}
