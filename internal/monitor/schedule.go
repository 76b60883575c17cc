package monitor

import "time"

// NextTick returns the earliest scheduled tick strictly after now, together
// with its index k. Ticks fall at start + k*interval for k >= 1; tick 0 is
// start itself, where the first cycle runs. Ticks already in the past are
// skipped, never replayed.
func NextTick(start time.Time, interval time.Duration, now time.Time) (time.Time, int64) {
	if interval <= 0 {
		return now, 0
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return start.Add(interval), 1
	}
	k := int64(elapsed/interval) + 1
	return start.Add(time.Duration(k) * interval), k
}
