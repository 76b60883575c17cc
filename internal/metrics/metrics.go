// Package metrics exposes monitor counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dwsmith1983/healthwatch/internal/monitor"
)

const namespace = "healthwatch"

var states = []monitor.State{monitor.StateIdle, monitor.StateRunning, monitor.StateStopping, monitor.StateStopped}

// Recorder is a monitor observer that records every cycle in Prometheus
// collectors on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	cycles         *prometheus.CounterVec
	samplingFaults *prometheus.CounterVec
	sinkFaults     *prometheus.CounterVec
	alerts         *prometheus.CounterVec
	lastValue      *prometheus.GaugeVec
	state          *prometheus.GaugeVec
	cycleDuration  *prometheus.HistogramVec
}

// NewRecorder creates a recorder with a private registry that also carries
// the Go runtime and process collectors. The cycle and fault counters for
// each named metric are exported at zero before the first cycle.
func NewRecorder(metrics ...string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed monitor cycles.",
		}, []string{"metric"}),
		samplingFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sampling_faults_total",
			Help:      "Cycles whose sample could not be read.",
		}, []string{"metric"}),
		sinkFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_faults_total",
			Help:      "Alerts that could not be delivered.",
		}, []string{"metric"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised for threshold violations.",
		}, []string{"metric", "level"}),
		lastValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_value",
			Help:      "Most recent successfully sampled value.",
		}, []string{"metric"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_state",
			Help:      "1 for the monitor's current lifecycle state, 0 otherwise.",
		}, []string{"state"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent sampling, evaluating and alerting in one cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"metric"}),
	}

	r.registry.MustRegister(
		r.cycles, r.samplingFaults, r.sinkFaults, r.alerts,
		r.lastValue, r.state, r.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, m := range metrics {
		r.cycles.WithLabelValues(m)
		r.samplingFaults.WithLabelValues(m)
		r.sinkFaults.WithLabelValues(m)
	}
	r.setState(monitor.StateIdle)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveCycle implements monitor.Observer.
func (r *Recorder) ObserveCycle(_ context.Context, rep monitor.CycleReport) {
	r.cycles.WithLabelValues(rep.Metric).Inc()
	r.cycleDuration.WithLabelValues(rep.Metric).Observe(rep.Duration.Seconds())

	if rep.SampleErr != nil {
		r.samplingFaults.WithLabelValues(rep.Metric).Inc()
	}
	if rep.Sample != nil {
		r.lastValue.WithLabelValues(rep.Metric).Set(rep.Sample.Value)
	}
	if rep.Alert != nil {
		r.alerts.WithLabelValues(rep.Metric, string(rep.Alert.Level)).Inc()
	}
	if rep.SinkErr != nil {
		r.sinkFaults.WithLabelValues(rep.Metric).Inc()
	}
}

// ObserveState implements monitor.StateObserver.
func (r *Recorder) ObserveState(_, to monitor.State) {
	r.setState(to)
}

func (r *Recorder) setState(current monitor.State) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		r.state.WithLabelValues(string(s)).Set(v)
	}
}
