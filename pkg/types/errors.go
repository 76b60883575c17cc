package types

import (
	"errors"
	"fmt"
)

// ErrTimeout is wrapped by SamplingError and SinkError when a call exceeded its bound.
var ErrTimeout = errors.New("timed out")

// ConfigurationError is fatal at start-up: the monitor never reaches Running.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// SamplingError means the metric could not be read for one cycle.
type SamplingError struct {
	Metric string
	Err    error
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling %s: %v", e.Metric, e.Err)
}

func (e *SamplingError) Unwrap() error { return e.Err }

// SinkError means an alert could not be delivered. Delivery is not retried.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
