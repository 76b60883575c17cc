// Package monitor implements the sample, evaluate and alert loop.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/healthwatch/internal/alert"
	"github.com/dwsmith1983/healthwatch/internal/policy"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

const tracerName = "github.com/dwsmith1983/healthwatch/internal/monitor"

// ErrAlreadyStarted is returned by Run when the monitor has already been run.
var ErrAlreadyStarted = errors.New("monitor already started")

// Source produces one sample of the monitored metric per call.
type Source interface {
	Name() string
	Sample(ctx context.Context) (types.Sample, error)
}

// Config is the immutable configuration of one monitor run.
type Config struct {
	Threshold     types.Threshold
	Interval      time.Duration
	SampleTimeout time.Duration // 0 means Interval
	SinkTimeout   time.Duration // 0 means Interval
	MaxCycles     int           // 0 means run until cancelled
	Level         types.AlertLevel
	Template      string
	Host          string
}

// Validate reports the first configuration problem as a *types.ConfigurationError.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return &types.ConfigurationError{Field: "pollIntervalMs", Reason: "must be greater than 0"}
	}
	if err := c.Threshold.Validate(); err != nil {
		return err
	}
	if c.SampleTimeout < 0 {
		return &types.ConfigurationError{Field: "sampleTimeoutMs", Reason: "must not be negative"}
	}
	if c.SinkTimeout < 0 {
		return &types.ConfigurationError{Field: "sinkTimeoutMs", Reason: "must not be negative"}
	}
	if c.MaxCycles < 0 {
		return &types.ConfigurationError{Field: "maxCycles", Reason: "must not be negative"}
	}
	if c.Level != "" {
		if _, err := types.ParseAlertLevel(string(c.Level)); err != nil {
			return &types.ConfigurationError{Field: "alertLevel", Reason: err.Error()}
		}
	}
	if err := alert.ValidateTemplate(c.Template); err != nil {
		return &types.ConfigurationError{Field: "messageTemplate", Reason: err.Error()}
	}
	return nil
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithObserver registers observers that receive a report after every cycle.
func WithObserver(obs ...Observer) Option {
	return func(m *Monitor) { m.observers = append(m.observers, obs...) }
}

// WithClock replaces time.Now for timestamps and scheduling.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor samples a metric on a fixed cadence, evaluates each sample against a
// threshold and sends an alert for every violation.
type Monitor struct {
	cfg       Config
	source    Source
	sink      alert.Sink
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time
	tracer    trace.Tracer

	started atomic.Bool
	session atomic.Pointer[session]

	transMu sync.Mutex // serializes transitions and their notifications
	mu      sync.Mutex
	state   State
}

// New creates a monitor in the Idle state. Configuration is checked when Run
// is called.
func New(cfg Config, src Source, sink alert.Sink, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:    cfg,
		source: src,
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
		state:  StateIdle,
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.cfg.Level == "" {
		m.cfg.Level = types.AlertLevelWarning
	} else if lvl, err := types.ParseAlertLevel(string(m.cfg.Level)); err == nil {
		m.cfg.Level = lvl
	}
	if m.cfg.Host == "" {
		m.cfg.Host, _ = os.Hostname()
	}
	if m.cfg.SampleTimeout == 0 {
		m.cfg.SampleTimeout = m.cfg.Interval
	}
	if m.cfg.SinkTimeout == 0 {
		m.cfg.SinkTimeout = m.cfg.Interval
	}
	return m
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of the current session.
func (m *Monitor) Stats() Stats {
	st := Stats{
		State:      m.State(),
		Threshold:  m.cfg.Threshold,
		IntervalMs: m.cfg.Interval.Milliseconds(),
	}
	if m.source != nil {
		st.Metric = m.source.Name()
	}
	if s := m.session.Load(); s != nil {
		s.fill(&st)
	}
	return st
}

// Run validates the configuration and then runs cycles until ctx is cancelled
// or MaxCycles cycles have completed. A configuration problem is returned as a
// *types.ConfigurationError and the monitor never reaches Running. Sampling and
// sink failures are logged and counted; they never end the run. Cancellation
// is honoured between cycles: an in-flight cycle, including its alert
// delivery, always completes. Run returns nil after a normal stop.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := m.validate(); err != nil {
		m.logger.Error("invalid monitor configuration", "error", err)
		m.setState(StateIdle, StateStopped)
		return err
	}

	sess := newSession(m.cfg.Interval, m.now())
	m.session.Store(sess)
	m.setState(StateIdle, StateRunning)
	m.logger.Info("monitor started",
		"session", sess.id,
		"metric", m.source.Name(),
		"threshold", m.cfg.Threshold.String(),
		"interval", m.cfg.Interval,
	)

	hookDone := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(hookDone)
		m.setState(StateRunning, StateStopping)
	})
	defer func() {
		if !stop() {
			<-hookDone
		}
	}()

	// Cycles run to completion even when ctx is cancelled mid-cycle.
	cycleCtx := context.WithoutCancel(ctx)
	var tick int64
	for ctx.Err() == nil {
		m.cycle(cycleCtx, sess)

		if m.cfg.MaxCycles > 0 && sess.cycles.Load() >= int64(m.cfg.MaxCycles) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		next, k := NextTick(sess.startedAt, m.cfg.Interval, m.now())
		if skipped := k - tick - 1; skipped > 0 {
			sess.skippedTicks.Add(skipped)
			m.logger.Warn("cycle overran poll interval, skipping ticks", "skipped", skipped, "interval", m.cfg.Interval)
		}
		tick = k
		if !sleep(ctx, next.Sub(m.now())) {
			break
		}
	}

	m.setState(StateRunning, StateStopping)
	m.setState(StateStopping, StateStopped)
	if ctx.Err() != nil {
		m.logger.Info("monitor stopped: cancellation requested", "session", sess.id, "cycles", sess.cycles.Load())
	} else {
		m.logger.Info("monitor stopped: cycle limit reached", "session", sess.id, "cycles", sess.cycles.Load())
	}
	return nil
}

func (m *Monitor) validate() error {
	if m.source == nil {
		return &types.ConfigurationError{Field: "metricName", Reason: "no metric source"}
	}
	if m.sink == nil {
		return &types.ConfigurationError{Field: "alerts", Reason: "no alert sink"}
	}
	return m.cfg.Validate()
}

// setState moves from one state to another if the monitor is currently in
// from. It is a no-op otherwise, which lets the cancellation hook and the loop
// race to enter Stopping.
func (m *Monitor) setState(from, to State) {
	m.transMu.Lock()
	defer m.transMu.Unlock()

	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return
	}
	if err := Transition(from, to); err != nil {
		m.mu.Unlock()
		m.logger.Error("monitor state change rejected", "error", err)
		return
	}
	m.state = to
	m.mu.Unlock()

	m.logger.Debug("monitor state changed", "from", from, "to", to)
	for _, o := range m.observers {
		if so, ok := o.(StateObserver); ok {
			so.ObserveState(from, to)
		}
	}
}

// cycle runs one sample, evaluate and maybe-alert step.
func (m *Monitor) cycle(ctx context.Context, sess *session) {
	n := sess.cycles.Load() + 1
	metric := m.source.Name()

	ctx, span := m.tracer.Start(ctx, "monitor.cycle", trace.WithAttributes(
		attribute.String("healthwatch.session", sess.id),
		attribute.String("healthwatch.metric", metric),
		attribute.Int64("healthwatch.cycle", n),
	))
	defer span.End()

	report := CycleReport{
		SessionID: sess.id,
		Metric:    metric,
		Cycle:     n,
		Started:   m.now(),
	}

	sample, err := bounded(ctx, m.cfg.SampleTimeout, m.source.Sample)
	if err != nil {
		serr := samplingError(metric, err)
		report.SampleErr = serr
		sess.samplingFaults.Add(1)
		span.RecordError(serr)
		span.SetStatus(codes.Error, "sampling failed")
		m.logger.Warn("sampling failed, skipping evaluation", "cycle", n, "metric", metric, "error", serr)
	} else {
		report.Sample = &sample
		report.Decision = policy.Evaluate(sample, m.cfg.Threshold)
		span.SetAttributes(
			attribute.Float64("healthwatch.value", sample.Value),
			attribute.String("healthwatch.decision", report.Decision.String()),
		)
		m.logger.Debug("sample evaluated", "cycle", n, "metric", metric, "value", sample.Value, "decision", report.Decision)

		if report.Decision == policy.Violated {
			a := m.newAlert(sample)
			report.Alert = &a
			sess.alerts.Add(1)
			span.AddEvent("alert", trace.WithAttributes(attribute.String("healthwatch.alert", a.ID)))

			if err := m.deliver(ctx, a); err != nil {
				serr := sinkError(m.sink.Name(), err)
				report.SinkErr = serr
				sess.sinkFaults.Add(1)
				span.RecordError(serr)
				span.SetStatus(codes.Error, "alert delivery failed")
				m.logger.Error("alert delivery failed", "cycle", n, "alert", a.ID, "error", serr)
			}
		}
	}

	end := m.now()
	report.Duration = end.Sub(report.Started)
	sess.lastCycleAt.Store(end.UnixNano())
	sess.cycles.Add(1)

	for _, o := range m.observers {
		o.ObserveCycle(ctx, report)
	}
}

func (m *Monitor) deliver(ctx context.Context, a types.Alert) error {
	_, err := bounded(ctx, m.cfg.SinkTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.sink.Send(ctx, a)
	})
	return err
}

func (m *Monitor) newAlert(s types.Sample) types.Alert {
	now := m.now()
	a := types.Alert{
		ID:        ulid.Make().String(),
		Level:     m.cfg.Level,
		Sample:    s,
		Threshold: m.cfg.Threshold,
		Timestamp: now,
		Host:      m.cfg.Host,
	}
	a.Message = alert.Render(m.cfg.Template, a)
	return a
}

func samplingError(metric string, err error) error {
	if se, ok := err.(*types.SamplingError); ok {
		return se
	}
	return &types.SamplingError{Metric: metric, Err: err}
}

func sinkError(sink string, err error) error {
	if se, ok := err.(*types.SinkError); ok {
		return se
	}
	return &types.SinkError{Sink: sink, Err: err}
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
