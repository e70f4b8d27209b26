package telemetry_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/gruntwork-io/flaky-report/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTraceExporter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		opts        *telemetry.Options
		name        string
		expectNil   bool
		expectError bool
	}{
		{name: "default", opts: &telemetry.Options{}, expectNil: true},
		{name: "none", opts: &telemetry.Options{TraceExporter: "none"}, expectNil: true},
		{name: "console", opts: &telemetry.Options{TraceExporter: "console"}},
		{name: "otlp http", opts: &telemetry.Options{TraceExporter: "otlpHttp"}},
		{name: "otlp grpc", opts: &telemetry.Options{TraceExporter: "otlpGrpc"}},
		{name: "custom http endpoint", opts: &telemetry.Options{TraceExporter: "http", TraceExporterHTTPEndpoint: "localhost:4318"}},
		{name: "custom http without endpoint", opts: &telemetry.Options{TraceExporter: "http"}, expectError: true},
		{name: "unknown", opts: &telemetry.Options{TraceExporter: "zipkin"}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			exporter, err := telemetry.NewTraceExporter(t.Context(), io.Discard, tc.opts)
			if tc.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			if tc.expectNil {
				assert.Nil(t, exporter)
				return
			}

			require.NotNil(t, exporter)
			require.NoError(t, exporter.Shutdown(t.Context()))
		})
	}
}

func TestNewMetricsExporter(t *testing.T) {
	t.Parallel()

	exporter, err := telemetry.NewMetricsExporter(t.Context(), io.Discard, &telemetry.Options{})
	require.NoError(t, err)
	assert.Nil(t, exporter)

	exporter, err = telemetry.NewMetricsExporter(t.Context(), io.Discard, &telemetry.Options{MetricExporter: "console"})
	require.NoError(t, err)
	require.NotNil(t, exporter)

	_, err = telemetry.NewMetricsExporter(t.Context(), io.Discard, &telemetry.Options{MetricExporter: "statsd"})
	require.Error(t, err)
}

func TestTelemeterFromContextDefaultsToNoop(t *testing.T) {
	t.Parallel()

	tlm := telemetry.TelemeterFromContext(context.Background())

	called := false
	err := tlm.Collect(t.Context(), "collect", map[string]any{"runs": 3}, func(ctx context.Context) error {
		called = true
		assert.False(t, trace.SpanContextFromContext(ctx).IsValid())

		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	tlm.Count(t.Context(), "documents", 1, nil)
	require.NoError(t, tlm.Shutdown(t.Context()))
}

func TestTelemeterConsoleExport(t *testing.T) {
	t.Parallel()

	var traces bytes.Buffer

	tlm, err := telemetry.NewTelemeter(t.Context(), "flaky-report", "test", &traces, &telemetry.Options{
		TraceExporter:  "console",
		MetricExporter: "console",
	})
	require.NoError(t, err)

	ctx := telemetry.ContextWithTelemeter(t.Context(), tlm)
	failure := errors.New("upstream down")

	err = telemetry.TelemeterFromContext(ctx).Collect(ctx, "collect_run", map[string]any{"run": int64(42)}, func(ctx context.Context) error {
		assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
		return failure
	})
	require.ErrorIs(t, err, failure)

	require.NoError(t, tlm.Shutdown(t.Context()))

	out := traces.String()
	assert.Contains(t, out, "collect_run")
	assert.Contains(t, out, "upstream down")
	assert.Contains(t, out, "collect_run_duration")
}

func TestTraceParentIsUsedAsRemoteParent(t *testing.T) {
	t.Parallel()

	var traces bytes.Buffer

	tracer, err := telemetry.NewTracer(t.Context(), "flaky-report", "test", &traces, &telemetry.Options{
		TraceExporter: "console",
		TraceParent:   "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	})
	require.NoError(t, err)

	err = tracer.Trace(t.Context(), "aggregate", nil, func(ctx context.Context) error {
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", trace.SpanContextFromContext(ctx).TraceID().String())
		return nil
	})
	require.NoError(t, err)

	_, err = telemetry.NewTracer(t.Context(), "flaky-report", "test", io.Discard, &telemetry.Options{
		TraceExporter: "console",
		TraceParent:   "garbage",
	})
	require.Error(t, err)
}

func TestCleanMetricName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "collect_run_duration", telemetry.CleanMetricName("collect run__duration!"))
}
