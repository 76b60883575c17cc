package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dwsmith1983/healthwatch/internal/monitor"
)

const meterName = "github.com/dwsmith1983/healthwatch/internal/telemetry"

// Recorder is a monitor observer that records cycles as OpenTelemetry
// instruments.
type Recorder struct {
	cycles         metric.Int64Counter
	samplingFaults metric.Int64Counter
	sinkFaults     metric.Int64Counter
	alerts         metric.Int64Counter
	duration       metric.Float64Histogram
	value          metric.Float64Gauge
}

// NewRecorder creates the instruments on mp.
func NewRecorder(mp metric.MeterProvider) (*Recorder, error) {
	m := mp.Meter(meterName)
	r := &Recorder{}
	var err error

	if r.cycles, err = m.Int64Counter("healthwatch.cycles", metric.WithDescription("Completed monitor cycles.")); err != nil {
		return nil, fmt.Errorf("creating cycles counter: %w", err)
	}
	if r.samplingFaults, err = m.Int64Counter("healthwatch.sampling.faults", metric.WithDescription("Cycles whose sample could not be read.")); err != nil {
		return nil, fmt.Errorf("creating sampling faults counter: %w", err)
	}
	if r.sinkFaults, err = m.Int64Counter("healthwatch.sink.faults", metric.WithDescription("Alerts that could not be delivered.")); err != nil {
		return nil, fmt.Errorf("creating sink faults counter: %w", err)
	}
	if r.alerts, err = m.Int64Counter("healthwatch.alerts", metric.WithDescription("Alerts raised for threshold violations.")); err != nil {
		return nil, fmt.Errorf("creating alerts counter: %w", err)
	}
	if r.duration, err = m.Float64Histogram("healthwatch.cycle.duration", metric.WithUnit("s"), metric.WithDescription("Time spent in one cycle.")); err != nil {
		return nil, fmt.Errorf("creating cycle duration histogram: %w", err)
	}
	if r.value, err = m.Float64Gauge("healthwatch.sample.value", metric.WithDescription("Most recent successfully sampled value.")); err != nil {
		return nil, fmt.Errorf("creating sample gauge: %w", err)
	}
	return r, nil
}

// ObserveCycle implements monitor.Observer.
func (r *Recorder) ObserveCycle(ctx context.Context, rep monitor.CycleReport) {
	attrs := metric.WithAttributes(attribute.String("metric", rep.Metric))

	r.cycles.Add(ctx, 1, attrs)
	r.duration.Record(ctx, rep.Duration.Seconds(), attrs)
	if rep.SampleErr != nil {
		r.samplingFaults.Add(ctx, 1, attrs)
	}
	if rep.Sample != nil {
		r.value.Record(ctx, rep.Sample.Value, attrs)
	}
	if rep.Alert != nil {
		r.alerts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("metric", rep.Metric),
			attribute.String("level", string(rep.Alert.Level)),
		))
	}
	if rep.SinkErr != nil {
		r.sinkFaults.Add(ctx, 1, attrs)
	}
}
