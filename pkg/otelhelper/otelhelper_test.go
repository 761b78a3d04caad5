package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "graph.Connect", attribute.String(FlowIDKey, "flow-1"))
	err := RecordError(span, errors.New("branch already connected"), attribute.String(EdgeIDKey, "e1"))
	span.End()

	require.EqualError(t, err, "branch already connected")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graph.Connect", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(FlowIDKey, "flow-1"))

	eventNames := make([]string, 0, len(spans[0].Events()))
	for _, event := range spans[0].Events() {
		eventNames = append(eventNames, event.Name)
	}

	assert.Contains(t, eventNames, "error_occurred")
}

func TestRecordError_NilLeavesSpanUnset(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "ok")
	require.NoError(t, RecordError(span, nil))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Empty(t, spans[0].Events())
}

func TestNoopTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), NoopTracer(), "noop")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
}
