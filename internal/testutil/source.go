// Package testutil provides shared test utilities for healthwatch.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// ErrScriptExhausted is returned once every scripted step has been consumed.
var ErrScriptExhausted = errors.New("script exhausted")

// Step is one scripted response of a ScriptedSource.
type Step struct {
	Value float64
	Err   error
	Delay time.Duration // honoured with the context unless IgnoreContext is set
	Panic bool

	// IgnoreContext makes the delay a plain sleep, simulating a dependency
	// that does not observe cancellation.
	IgnoreContext bool
}

// Values builds one successful step per value.
func Values(vs ...float64) []Step {
	steps := make([]Step, len(vs))
	for i, v := range vs {
		steps[i] = Step{Value: v}
	}
	return steps
}

// Fail builds a step that fails with err wrapped in a *types.SamplingError.
func Fail(err error) Step {
	return Step{Err: err}
}

// ScriptedSource is an in-memory metric source that replays a fixed script.
type ScriptedSource struct {
	mu     sync.Mutex
	name   string
	unit   string
	steps  []Step
	calls  int
	onCall func(call int)
}

// NewScriptedSource creates a source named name that replays steps in order.
func NewScriptedSource(name string, steps ...Step) *ScriptedSource {
	return &ScriptedSource{name: name, unit: "%", steps: steps}
}

// OnCall registers a hook invoked with the 1-based call number at the start
// of every Sample call.
func (s *ScriptedSource) OnCall(fn func(call int)) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCall = fn
	return s
}

// Name returns the metric name.
func (s *ScriptedSource) Name() string { return s.name }

// Calls returns how many times Sample has been called.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Sample returns the next scripted step.
func (s *ScriptedSource) Sample(ctx context.Context) (types.Sample, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	hook := s.onCall
	var step Step
	exhausted := call > len(s.steps)
	if !exhausted {
		step = s.steps[call-1]
	}
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if exhausted {
		return types.Sample{}, &types.SamplingError{Metric: s.name, Err: ErrScriptExhausted}
	}

	if step.Delay > 0 {
		if step.IgnoreContext {
			time.Sleep(step.Delay)
		} else {
			t := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return types.Sample{}, &types.SamplingError{Metric: s.name, Err: ctx.Err()}
			case <-t.C:
			}
		}
	}
	if step.Panic {
		panic("scripted source panic")
	}
	if step.Err != nil {
		return types.Sample{}, &types.SamplingError{Metric: s.name, Err: step.Err}
	}
	return types.Sample{
		Metric:    s.name,
		Value:     step.Value,
		Unit:      s.unit,
		Timestamp: time.Now(),
	}, nil
}
