package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartStepSpan starts a span for one step of a multi-step workflow, named
// "<workflow>.<step>".
func StartStepSpan(ctx context.Context, tracer trace.Tracer, workflow, step string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, workflow+"."+step)

	span.SetAttributes(
		attribute.String("workflow.name", workflow),
		attribute.String("workflow.step", step),
	)
	span.SetAttributes(attrs...)

	return ctx, span
}

// EndSpan records err (if any) and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
