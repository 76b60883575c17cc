// Package policy decides whether a sample violates a threshold.
package policy

import (
	"fmt"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// Decision is the outcome of evaluating a sample.
type Decision int

// Decision values.
const (
	// Ok means the sample is within the threshold.
	Ok Decision = iota
	// Violated means the sample crossed the threshold and an alert is due.
	Violated
)

// String returns "OK", "VIOLATED", or "UNKNOWN(n)" for out-of-range values.
func (d Decision) String() string {
	switch d {
	case Ok:
		return "OK"
	case Violated:
		return "VIOLATED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(d))
	}
}

// Evaluate compares the sample value against the threshold. It is pure and
// total: a NaN value or an unknown comparison never violates.
func Evaluate(sample types.Sample, threshold types.Threshold) Decision {
	v, t := sample.Value, threshold.Value

	var violated bool
	switch threshold.Comparison {
	case types.CompareGT:
		violated = v > t
	case types.CompareGTE:
		violated = v >= t
	case types.CompareLT:
		violated = v < t
	case types.CompareLTE:
		violated = v <= t
	}

	if violated {
		return Violated
	}
	return Ok
}
