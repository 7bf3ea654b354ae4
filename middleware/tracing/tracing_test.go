package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/bugline/bugline"
)

type tracedCommand struct{}

func (tracedCommand) CommandName() string { return "bug.create" }
func (tracedCommand) Validate() error     { return nil }

func TestMiddlewareRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	mw := Middleware(tp)

	handler := mw(func(context.Context, bugline.Command) (any, error) { return "id", nil })
	_, err := handler(context.Background(), tracedCommand{})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "bug.create", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestMiddlewareRecordsError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	mw := Middleware(tp)

	handler := mw(func(context.Context, bugline.Command) (any, error) {
		return nil, errors.New("boom")
	})
	_, err := handler(context.Background(), tracedCommand{})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1, "error recorded as a span event")
}
