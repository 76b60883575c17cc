// Package source produces samples of a monitored system metric.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// ErrOutOfRange is wrapped in a SamplingError when a reading falls outside the
// metric's natural domain.
var ErrOutOfRange = errors.New("value out of range")

// ReadFunc reads the raw value of a metric.
type ReadFunc func(ctx context.Context) (float64, error)

// Metric is a source backed by a ReadFunc and bounded to [lo, hi].
type Metric struct {
	name string
	unit string
	lo   float64
	hi   float64
	read ReadFunc
	now  func() time.Time
}

// NewMetric creates a source for a custom metric. Use math.Inf(1) for an
// unbounded maximum.
func NewMetric(name, unit string, lo, hi float64, read ReadFunc) *Metric {
	return &Metric{
		name: name,
		unit: unit,
		lo:   lo,
		hi:   hi,
		read: read,
		now:  time.Now,
	}
}

// Name returns the metric name.
func (m *Metric) Name() string { return m.name }

// Unit returns the unit samples are reported in.
func (m *Metric) Unit() string { return m.unit }

// CheckThreshold returns a *types.ConfigurationError when value lies outside
// the metric's domain, where no reading could ever be compared meaningfully.
func (m *Metric) CheckThreshold(value float64) error {
	if value < m.lo || value > m.hi {
		return &types.ConfigurationError{
			Field:  "thresholdValue",
			Reason: fmt.Sprintf("%g is outside the %s range [%g, %g]", value, m.name, m.lo, m.hi),
		}
	}
	return nil
}

// Sample reads the metric once. Readings that fail, are not finite, or fall
// outside the metric's domain are returned as a *types.SamplingError.
func (m *Metric) Sample(ctx context.Context) (types.Sample, error) {
	v, err := m.read(ctx)
	if err != nil {
		return types.Sample{}, &types.SamplingError{Metric: m.name, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return types.Sample{}, &types.SamplingError{Metric: m.name, Err: fmt.Errorf("%w: %v is not finite", ErrOutOfRange, v)}
	}
	if v < m.lo || v > m.hi {
		return types.Sample{}, &types.SamplingError{
			Metric: m.name,
			Err:    fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, v, m.lo, m.hi),
		}
	}
	return types.Sample{
		Metric:    m.name,
		Value:     v,
		Unit:      m.unit,
		Timestamp: m.now(),
	}, nil
}

// Options tune the built-in system metrics.
type Options struct {
	// SampleWindow is how long the cpu metric measures over. Zero compares
	// against the previous call.
	SampleWindow time.Duration
	// DiskPath is the mount point the disk metric reports on. Defaults to "/".
	DiskPath string
}

type factory func(Options) *Metric

var builtins = map[string]factory{
	"cpu":    newCPU,
	"memory": newMemory,
	"swap":   newSwap,
	"disk":   newDisk,
	"load1":  newLoad1,
}

// New returns the built-in source registered under name. Unknown names are a
// *types.ConfigurationError.
func New(name string, opts Options) (*Metric, error) {
	f, ok := builtins[name]
	if !ok {
		return nil, &types.ConfigurationError{
			Field:  "metricName",
			Reason: fmt.Sprintf("unknown metric %q (known: %v)", name, Names()),
		}
	}
	return f(opts), nil
}

// Names lists the built-in metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
