package telemetry

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(Config{SamplerType: "never"}).Description(), "AlwaysOff")
	assert.Contains(t, sampler(Config{SamplerType: "ratio", SamplerRatio: 0.5}).Description(), "ParentBased")
	assert.Contains(t, sampler(Config{}).Description(), "AlwaysOn")
}

func TestWithSpan(t *testing.T) {
	recorder := installRecorder(t)

	err := WithSpan(context.Background(), "skills.refresh", func(ctx context.Context) error {
		SetAttributes(ctx, attribute.Int("skills.count", 3))
		AddEvent(ctx, "scanned")
		return nil
	})
	require.NoError(t, err)

	failure := errors.New("boom")
	err = WithSpan(context.Background(), "skills.activate", func(context.Context) error {
		return failure
	})
	assert.Equal(t, failure, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "skills.refresh", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("skills.count", 3))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "scanned", spans[0].Events()[0].Name)

	assert.Equal(t, "skills.activate", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
}
