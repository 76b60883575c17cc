package testutil

import (
	"testing"
	"time"
)

// WaitFor polls check every 5ms until it returns true or timeout is reached.
func WaitFor(t *testing.T, timeout time.Duration, check func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", msg)
}

// WaitForAlerts polls until the sink has recorded at least n alerts.
func WaitForAlerts(t *testing.T, sink *RecordingSink, n int, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, func() bool {
		return sink.Count() >= n
	}, "recorded alert count >= target")
}

// WaitForCalls polls until the source has been sampled at least n times,
// indicating the monitor has started that many cycles.
func WaitForCalls(t *testing.T, src *ScriptedSource, n int, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, func() bool {
		return src.Calls() >= n
	}, "source call count >= target")
}
