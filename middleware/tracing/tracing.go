// Package tracing wraps command dispatch in OpenTelemetry spans.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bugline/bugline"
)

const scopeName = "github.com/bugline/bugline/middleware/tracing"

// Middleware returns command middleware that opens one span per
// dispatch, named after the command, and records the error outcome.
// A nil provider falls back to the global one.
func Middleware(tp trace.TracerProvider) bugline.Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(scopeName)

	return func(next bugline.MiddlewareFunc) bugline.MiddlewareFunc {
		return func(ctx context.Context, cmd bugline.Command) (any, error) {
			ctx, span := tracer.Start(ctx, cmd.CommandName(),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("bugline.command", cmd.CommandName())),
			)
			defer span.End()

			res, err := next(ctx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return res, err
		}
	}
}
