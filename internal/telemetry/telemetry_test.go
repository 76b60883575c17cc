package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dwsmith1983/healthwatch/internal/monitor"
	"github.com/dwsmith1983/healthwatch/internal/testutil"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

func runMonitor(t *testing.T, obs ...monitor.Observer) {
	t.Helper()
	src := testutil.NewScriptedSource("cpu", testutil.Values(50, 90)...)
	m := monitor.New(monitor.Config{
		Threshold:     types.Threshold{Value: 80, Comparison: types.CompareGT},
		Interval:      5 * time.Millisecond,
		SampleTimeout: time.Second,
		SinkTimeout:   time.Second,
		MaxCycles:     2,
	}, src, testutil.NewRecordingSink(),
		monitor.WithObserver(obs...),
		monitor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, m.Run(context.Background()))
}

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	assert.False(t, Enabled(nil))
	assert.False(t, Enabled(&types.TelemetryConfig{ServiceName: "x"}))

	shutdown, err := Setup(context.Background(), nil, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_InstallsProviders(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	shutdown, err := Setup(context.Background(), &types.TelemetryConfig{
		OTLPEndpoint: "127.0.0.1:1",
		Insecure:     true,
	}, "test")
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	_, ok = otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, ok)

	// Nothing is listening; the final flush may fail but must return.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestMonitor_EmitsOneSpanPerCycle(t *testing.T) {
	prev := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	runMonitor(t)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "monitor.cycle", s.Name())
	}
	assert.Len(t, spans[1].Events(), 1, "violating cycle records an alert event")
}

func TestRecorder_ObserveCycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	rec, err := NewRecorder(mp)
	require.NoError(t, err)
	runMonitor(t, rec)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["healthwatch.cycles"])
	assert.Equal(t, int64(1), sums["healthwatch.alerts"])
	assert.Zero(t, sums["healthwatch.sink.faults"])
}
