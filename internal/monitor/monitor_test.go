package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dwsmith1983/healthwatch/internal/alert"
	"github.com/dwsmith1983/healthwatch/internal/policy"
	"github.com/dwsmith1983/healthwatch/internal/testutil"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() Config {
	return Config{
		Threshold:     types.Threshold{Value: 80, Comparison: types.CompareGT},
		Interval:      10 * time.Millisecond,
		SampleTimeout: time.Second,
		SinkTimeout:   time.Second,
		Host:          "test-host",
	}
}

// recordingObserver keeps every cycle report and state change.
type recordingObserver struct {
	mu      sync.Mutex
	reports []CycleReport
	states  []State
}

func (o *recordingObserver) ObserveCycle(_ context.Context, r CycleReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func (o *recordingObserver) ObserveState(_, to State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, to)
}

func (o *recordingObserver) Reports() []CycleReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]CycleReport(nil), o.reports...)
}

func (o *recordingObserver) States() []State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]State(nil), o.states...)
}

func TestRun_AlertsOnlyForViolatingSamples(t *testing.T) {
	src := testutil.NewScriptedSource("cpu", testutil.Values(75, 81, 80, 95)...)
	sink := testutil.NewRecordingSink()
	cfg := baseConfig()
	cfg.MaxCycles = 4

	m := New(cfg, src, sink, WithLogger(quietLogger()))
	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, []float64{81, 95}, sink.Values())
	st := m.Stats()
	assert.EqualValues(t, 4, st.Cycles)
	assert.EqualValues(t, 2, st.Alerts)
	assert.Zero(t, st.Faults())
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, 4, src.Calls())
}

func TestRun_SamplingErrorSkipsOnlyThatCycle(t *testing.T) {
	steps := []testutil.Step{
		{Value: 70},
		testutil.Fail(errors.New("proc stat unavailable")),
		{Value: 90},
		{Value: 60},
	}
	src := testutil.NewScriptedSource("cpu", steps...)
	sink := testutil.NewRecordingSink()
	obs := &recordingObserver{}
	cfg := baseConfig()
	cfg.MaxCycles = 4

	m := New(cfg, src, sink, WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, []float64{90}, sink.Values())
	st := m.Stats()
	assert.EqualValues(t, 4, st.Cycles)
	assert.EqualValues(t, 1, st.SamplingFaults)
	assert.EqualValues(t, 0, st.SinkFaults)

	reports := obs.Reports()
	require.Len(t, reports, 4)

	failed := reports[1]
	var se *types.SamplingError
	require.ErrorAs(t, failed.SampleErr, &se)
	assert.Equal(t, "cpu", se.Metric)
	assert.Nil(t, failed.Sample)
	assert.Nil(t, failed.Alert)

	require.NotNil(t, reports[2].Alert)
	assert.Equal(t, 90.0, reports[2].Alert.Sample.Value)
	assert.Equal(t, policy.Violated, reports[2].Decision)

	// The cycle after the fault still runs on its own tick.
	require.NotNil(t, st.StartedAt)
	assert.False(t, reports[2].Started.Before(st.StartedAt.Add(2*cfg.Interval)))
}

func TestRun_GTEBoundaryAlertsOnEqual(t *testing.T) {
	src := testutil.NewScriptedSource("cpu", testutil.Values(79.99, 80)...)
	sink := testutil.NewRecordingSink()
	cfg := baseConfig()
	cfg.Threshold.Comparison = types.CompareGTE
	cfg.MaxCycles = 2

	require.NoError(t, New(cfg, src, sink, WithLogger(quietLogger())).Run(context.Background()))
	assert.Equal(t, []float64{80}, sink.Values())
}

func TestRun_SinkErrorDoesNotStopLoop(t *testing.T) {
	src := testutil.NewScriptedSource("cpu", testutil.Values(90, 91, 92)...)
	sink := &testutil.FailingSink{}
	obs := &recordingObserver{}
	cfg := baseConfig()
	cfg.MaxCycles = 3

	m := New(cfg, src, sink, WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, 3, sink.Calls())
	st := m.Stats()
	assert.EqualValues(t, 3, st.Cycles)
	assert.EqualValues(t, 3, st.Alerts)
	assert.EqualValues(t, 3, st.SinkFaults)

	for _, r := range obs.Reports() {
		var se *types.SinkError
		require.ErrorAs(t, r.SinkErr, &se)
		assert.Equal(t, "failing", se.Sink)
		assert.ErrorIs(t, r.SinkErr, testutil.ErrSinkDown)
	}
}

func TestRun_DispatcherFailureCountsOncePerAlert(t *testing.T) {
	d, err := alert.NewDispatcher(nil, quietLogger())
	require.NoError(t, err)
	d.AddSink(&testutil.FailingSink{})
	d.AddSink(&testutil.FailingSink{})
	rec := testutil.NewRecordingSink()
	d.AddSink(rec)

	src := testutil.NewScriptedSource("cpu", testutil.Values(90, 95)...)
	cfg := baseConfig()
	cfg.MaxCycles = 2

	m := New(cfg, src, d, WithLogger(quietLogger()))
	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, 2, rec.Count())
	assert.EqualValues(t, 2, m.Stats().SinkFaults)
}

func TestRun_CancellationDuringCycleCompletesThatCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := testutil.NewScriptedSource("cpu", testutil.Values(90, 91, 92, 93)...)
	src.OnCall(func(call int) {
		if call == 2 {
			cancel()
		}
	})
	sink := testutil.NewRecordingSink()
	obs := &recordingObserver{}

	m := New(baseConfig(), src, sink, WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, m.Run(ctx))

	// Cycle 2 ran to completion, including delivery; cycle 3 never began.
	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, []float64{90, 91}, sink.Values())
	for _, err := range sink.ContextErrors() {
		assert.NoError(t, err, "delivery must not see the cancelled context")
	}
	assert.EqualValues(t, 2, m.Stats().Cycles)
	assert.Equal(t, []State{StateRunning, StateStopping, StateStopped}, obs.States())
}

func TestRun_CancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := testutil.NewScriptedSource("cpu", testutil.Values(50, 50, 50, 50, 50, 50, 50, 50)...)
	cfg := baseConfig()
	cfg.Interval = time.Hour

	m := New(cfg, src, testutil.NewRecordingSink(), WithLogger(quietLogger()))
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	testutil.WaitForCalls(t, src, 1, time.Second)
	testutil.WaitFor(t, time.Second, func() bool { return m.Stats().Cycles == 1 }, "first cycle complete")
	assert.Equal(t, StateRunning, m.State())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop during the wait")
	}
	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, StateStopped, m.State())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := testutil.NewScriptedSource("cpu", testutil.Values(90)...)
	m := New(baseConfig(), src, testutil.NewRecordingSink(), WithLogger(quietLogger()))
	require.NoError(t, m.Run(ctx))

	assert.Equal(t, 0, src.Calls())
	assert.Equal(t, StateStopped, m.State())
	assert.Zero(t, m.Stats().Cycles)
}

func TestRun_SampleTimeout(t *testing.T) {
	steps := []testutil.Step{
		{Value: 99, Delay: time.Minute},
		{Value: 99, Delay: 300 * time.Millisecond, IgnoreContext: true},
		{Value: 90},
	}
	src := testutil.NewScriptedSource("cpu", steps...)
	sink := testutil.NewRecordingSink()
	obs := &recordingObserver{}
	cfg := baseConfig()
	cfg.SampleTimeout = 20 * time.Millisecond
	cfg.Interval = 30 * time.Millisecond
	cfg.MaxCycles = 3

	m := New(cfg, src, sink, WithLogger(quietLogger()), WithObserver(obs))
	start := time.Now()
	require.NoError(t, m.Run(context.Background()))
	assert.Less(t, time.Since(start), 250*time.Millisecond, "a hung source must not stall the loop")

	assert.Equal(t, []float64{90}, sink.Values())
	assert.EqualValues(t, 2, m.Stats().SamplingFaults)
	reports := obs.Reports()
	require.Len(t, reports, 3)
	for _, r := range reports[:2] {
		var se *types.SamplingError
		require.ErrorAs(t, r.SampleErr, &se)
		assert.ErrorIs(t, r.SampleErr, types.ErrTimeout)
	}
}

func TestRun_SinkTimeout(t *testing.T) {
	for _, honour := range []bool{true, false} {
		honour := honour
		name := "ignores context"
		if honour {
			name = "honours context"
		}
		t.Run(name, func(t *testing.T) {
			sink := testutil.NewBlockingSink(honour)
			t.Cleanup(sink.Release)

			src := testutil.NewScriptedSource("cpu", testutil.Values(90, 95)...)
			obs := &recordingObserver{}
			cfg := baseConfig()
			cfg.SinkTimeout = 20 * time.Millisecond
			cfg.Interval = 30 * time.Millisecond
			cfg.MaxCycles = 2

			m := New(cfg, src, sink, WithLogger(quietLogger()), WithObserver(obs))
			start := time.Now()
			require.NoError(t, m.Run(context.Background()))
			assert.Less(t, time.Since(start), 500*time.Millisecond)

			assert.Equal(t, 2, sink.Calls())
			st := m.Stats()
			assert.EqualValues(t, 2, st.SinkFaults)
			assert.EqualValues(t, 2, st.Cycles)
			for _, r := range obs.Reports() {
				assert.ErrorIs(t, r.SinkErr, types.ErrTimeout)
			}
		})
	}
}

func TestRun_PanickingSourceIsSamplingFault(t *testing.T) {
	src := testutil.NewScriptedSource("cpu", testutil.Step{Panic: true}, testutil.Step{Value: 90})
	sink := testutil.NewRecordingSink()
	cfg := baseConfig()
	cfg.MaxCycles = 2

	m := New(cfg, src, sink, WithLogger(quietLogger()))
	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, []float64{90}, sink.Values())
	assert.EqualValues(t, 1, m.Stats().SamplingFaults)
}

func TestRun_OverrunSkipsTicks(t *testing.T) {
	steps := []testutil.Step{
		{Value: 50, Delay: 35 * time.Millisecond},
		{Value: 50},
	}
	src := testutil.NewScriptedSource("cpu", steps...)
	obs := &recordingObserver{}
	cfg := baseConfig()
	cfg.MaxCycles = 2

	m := New(cfg, src, testutil.NewRecordingSink(), WithLogger(quietLogger()), WithObserver(obs))
	require.NoError(t, m.Run(context.Background()))

	st := m.Stats()
	assert.GreaterOrEqual(t, st.SkippedTicks, int64(3))
	reports := obs.Reports()
	require.Len(t, reports, 2)
	// The second cycle starts on the next aligned tick, not immediately.
	assert.False(t, reports[1].Started.Before(st.StartedAt.Add(4*cfg.Interval)))
}

func TestRun_AlertContents(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	src := testutil.NewScriptedSource("cpu", testutil.Values(85.456)...)
	sink := testutil.NewRecordingSink()
	cfg := baseConfig()
	cfg.MaxCycles = 1
	cfg.Level = "error"
	cfg.Host = "web-1"
	cfg.Template = "{{METRIC}} on {{host}} at {{value}}{{unit}} ({{comparison}} {{threshold}})"

	m := New(cfg, src, sink, WithLogger(quietLogger()), WithClock(func() time.Time { return fixed }))
	require.NoError(t, m.Run(context.Background()))

	alerts := sink.Alerts()
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, types.AlertLevelError, a.Level)
	assert.Equal(t, "web-1", a.Host)
	assert.Equal(t, fixed, a.Timestamp)
	assert.Equal(t, "cpu", a.Sample.Metric)
	assert.Equal(t, 85.456, a.Sample.Value)
	assert.Equal(t, cfg.Threshold, a.Threshold)
	assert.Equal(t, "CPU on web-1 at 85.46% (> 80)", a.Message)
}

func TestRun_DefaultMessage(t *testing.T) {
	src := testutil.NewScriptedSource("cpu", testutil.Values(85)...)
	sink := testutil.NewRecordingSink()
	cfg := baseConfig()
	cfg.MaxCycles = 1

	require.NoError(t, New(cfg, src, sink, WithLogger(quietLogger())).Run(context.Background()))
	alerts := sink.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Alert! CPU usage exceeds threshold: 85%", alerts[0].Message)
	assert.Equal(t, types.AlertLevelWarning, alerts[0].Level)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		edit    func(*Config)
		nilSrc  bool
		nilSink bool
	}{
		{name: "zero interval", field: "pollIntervalMs", edit: func(c *Config) { c.Interval = 0 }},
		{name: "negative interval", field: "pollIntervalMs", edit: func(c *Config) { c.Interval = -time.Second }},
		{name: "unknown comparison", field: "comparison", edit: func(c *Config) { c.Threshold.Comparison = "ABOVE" }},
		{name: "NaN threshold", field: "thresholdValue", edit: func(c *Config) { c.Threshold.Value = math.NaN() }},
		{name: "negative sample timeout", field: "sampleTimeoutMs", edit: func(c *Config) { c.SampleTimeout = -1 }},
		{name: "negative sink timeout", field: "sinkTimeoutMs", edit: func(c *Config) { c.SinkTimeout = -1 }},
		{name: "negative max cycles", field: "maxCycles", edit: func(c *Config) { c.MaxCycles = -1 }},
		{name: "unknown level", field: "alertLevel", edit: func(c *Config) { c.Level = "critical" }},
		{name: "malformed template", field: "messageTemplate", edit: func(c *Config) { c.Template = "{{value" }},
		{name: "no source", field: "metricName", nilSrc: true},
		{name: "no sink", field: "alerts", nilSink: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			if tt.edit != nil {
				tt.edit(&cfg)
			}
			scripted := testutil.NewScriptedSource("cpu", testutil.Values(90)...)
			var src Source = scripted
			if tt.nilSrc {
				src = nil
			}
			var sink alert.Sink = testutil.NewRecordingSink()
			if tt.nilSink {
				sink = nil
			}
			obs := &recordingObserver{}

			m := New(cfg, src, sink, WithLogger(quietLogger()), WithObserver(obs))
			err := m.Run(context.Background())

			var ce *types.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.True(t, types.IsConfigurationError(err))
			assert.Equal(t, StateStopped, m.State())
			assert.Equal(t, []State{StateStopped}, obs.States(), "must never reach running")
			assert.Equal(t, 0, scripted.Calls())
		})
	}
}

func TestRun_AlreadyStarted(t *testing.T) {
	src := testutil.NewScriptedSource("cpu", testutil.Values(10)...)
	cfg := baseConfig()
	cfg.MaxCycles = 1

	m := New(cfg, src, testutil.NewRecordingSink(), WithLogger(quietLogger()))
	require.NoError(t, m.Run(context.Background()))
	assert.ErrorIs(t, m.Run(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, 1, src.Calls())
}

func TestStats_WhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := testutil.NewScriptedSource("cpu", testutil.Values(10, 90, 10, 90, 10, 90, 10, 90)...)
	cfg := baseConfig()

	m := New(cfg, src, testutil.NewRecordingSink(), WithLogger(quietLogger()))
	before := m.Stats()
	assert.Equal(t, StateIdle, before.State)
	assert.Empty(t, before.SessionID)
	assert.Nil(t, before.StartedAt)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	testutil.WaitFor(t, 2*time.Second, func() bool { return m.Stats().Cycles >= 2 }, "two cycles")
	st := m.Stats()
	assert.Equal(t, StateRunning, st.State)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, "cpu", st.Metric)
	assert.EqualValues(t, 10, st.IntervalMs)
	assert.NotNil(t, st.LastCycleAt)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateStopped, m.Stats().State)
}
