package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// ErrSinkDown is returned by FailingSink.
var ErrSinkDown = errors.New("sink unavailable")

// RecordingSink records every alert it receives.
type RecordingSink struct {
	mu      sync.Mutex
	alerts  []types.Alert
	ctxErrs []error
}

// NewRecordingSink creates an empty recording sink.
func NewRecordingSink() *RecordingSink { return &RecordingSink{} }

// Name returns the sink identifier.
func (s *RecordingSink) Name() string { return "recording" }

// Send records the alert and the state of ctx at delivery time.
func (s *RecordingSink) Send(ctx context.Context, a types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return nil
}

// Alerts returns a copy of the recorded alerts.
func (s *RecordingSink) Alerts() []types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Values returns the sampled value of each recorded alert, in order.
func (s *RecordingSink) Values() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.alerts))
	for i, a := range s.alerts {
		out[i] = a.Sample.Value
	}
	return out
}

// ContextErrors returns ctx.Err() as observed by each Send call.
func (s *RecordingSink) ContextErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.ctxErrs))
	copy(out, s.ctxErrs)
	return out
}

// Count returns the number of recorded alerts.
func (s *RecordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// FailingSink rejects every alert with ErrSinkDown.
type FailingSink struct {
	mu    sync.Mutex
	calls int
}

// Name returns the sink identifier.
func (s *FailingSink) Name() string { return "failing" }

// Send counts the call and fails.
func (s *FailingSink) Send(_ context.Context, _ types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return ErrSinkDown
}

// Calls returns how many alerts were attempted.
func (s *FailingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// BlockingSink hangs on every Send until released. If it honours the context
// it also returns when ctx is done.
type BlockingSink struct {
	honourContext bool
	release       chan struct{}
	once          sync.Once

	mu    sync.Mutex
	calls int
}

// NewBlockingSink creates a sink that blocks until Release is called, or until
// the call's context is done when honourContext is set.
func NewBlockingSink(honourContext bool) *BlockingSink {
	return &BlockingSink{honourContext: honourContext, release: make(chan struct{})}
}

// Name returns the sink identifier.
func (s *BlockingSink) Name() string { return "blocking" }

// Send blocks.
func (s *BlockingSink) Send(ctx context.Context, _ types.Alert) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.honourContext {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.release:
			return nil
		}
	}
	<-s.release
	return nil
}

// Release unblocks all pending and future Send calls.
func (s *BlockingSink) Release() {
	s.once.Do(func() { close(s.release) })
}

// Calls returns how many alerts were attempted.
func (s *BlockingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
