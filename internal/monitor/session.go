package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dwsmith1983/healthwatch/internal/policy"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// session is the run-scoped state of one active loop. Counters are written
// only by the loop goroutine and read by observers, so they are atomics.
type session struct {
	id        string
	interval  time.Duration
	startedAt time.Time

	cycles         atomic.Int64
	samplingFaults atomic.Int64
	sinkFaults     atomic.Int64
	alerts         atomic.Int64
	skippedTicks   atomic.Int64
	lastCycleAt    atomic.Int64 // unix nanos
}

func newSession(interval time.Duration, now time.Time) *session {
	return &session{
		id:        uuid.NewString(),
		interval:  interval,
		startedAt: now,
	}
}

// Stats is a point-in-time snapshot of a monitor and its session.
type Stats struct {
	SessionID      string          `json:"sessionId,omitempty"`
	State          State           `json:"state"`
	Metric         string          `json:"metric"`
	Threshold      types.Threshold `json:"threshold"`
	IntervalMs     int64           `json:"intervalMs"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	LastCycleAt    *time.Time      `json:"lastCycleAt,omitempty"`
	Cycles         int64           `json:"cycles"`
	SamplingFaults int64           `json:"samplingFaults"`
	SinkFaults     int64           `json:"sinkFaults"`
	Alerts         int64           `json:"alerts"`
	SkippedTicks   int64           `json:"skippedTicks"`
}

// Faults returns the total of sampling and sink faults.
func (s Stats) Faults() int64 { return s.SamplingFaults + s.SinkFaults }

func (s *session) fill(st *Stats) {
	st.SessionID = s.id
	st.IntervalMs = s.interval.Milliseconds()
	started := s.startedAt
	st.StartedAt = &started
	if ns := s.lastCycleAt.Load(); ns != 0 {
		last := time.Unix(0, ns).UTC()
		st.LastCycleAt = &last
	}
	st.Cycles = s.cycles.Load()
	st.SamplingFaults = s.samplingFaults.Load()
	st.SinkFaults = s.sinkFaults.Load()
	st.Alerts = s.alerts.Load()
	st.SkippedTicks = s.skippedTicks.Load()
}

// CycleReport describes one completed cycle. Sample is nil when sampling
// failed; Alert is nil unless the sample violated the threshold.
type CycleReport struct {
	SessionID string
	Metric    string
	Cycle     int64
	Started   time.Time
	Duration  time.Duration
	Sample    *types.Sample
	Decision  policy.Decision
	SampleErr error
	Alert     *types.Alert
	SinkErr   error
}

// Observer receives a report after every cycle. Observers run on the loop
// goroutine and must return promptly.
type Observer interface {
	ObserveCycle(ctx context.Context, report CycleReport)
}

// StateObserver is implemented by observers that also want lifecycle changes.
type StateObserver interface {
	ObserveState(from, to State)
}
