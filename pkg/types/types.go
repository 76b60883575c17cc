package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Sample is one measured value of the monitored metric at a point in time.
type Sample struct {
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Threshold is a numeric boundary plus the direction it is checked in.
type Threshold struct {
	Value      float64    `json:"value"`
	Comparison Comparison `json:"comparison"`
}

// Validate returns a ConfigurationError when the threshold cannot be evaluated.
func (t Threshold) Validate() error {
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
		return &ConfigurationError{Field: "thresholdValue", Reason: "must be a finite number"}
	}
	if !t.Comparison.Valid() {
		return &ConfigurationError{Field: "comparison", Reason: fmt.Sprintf("unknown comparison %q", t.Comparison)}
	}
	return nil
}

// String renders the threshold as e.g. "> 80".
func (t Threshold) String() string {
	return fmt.Sprintf("%s %g", t.Comparison.Symbol(), t.Value)
}

// Alert is raised when a sample violates the threshold. It always carries the
// violating sample.
type Alert struct {
	ID        string
	Level     AlertLevel
	Sample    Sample
	Threshold Threshold
	Timestamp time.Time
	Host      string
	Message   string
}

// AlertRecord is the wire representation of an Alert.
type AlertRecord struct {
	ID           string     `json:"id"`
	Level        AlertLevel `json:"level"`
	MetricName   string     `json:"metricName"`
	SampledValue float64    `json:"sampledValue"`
	Unit         string     `json:"unit,omitempty"`
	Threshold    float64    `json:"threshold"`
	Comparison   Comparison `json:"comparison"`
	SampledAt    time.Time  `json:"sampledAt"`
	Timestamp    time.Time  `json:"timestamp"`
	Host         string     `json:"host,omitempty"`
	Message      string     `json:"message"`
}

// Record flattens the alert into its wire form.
func (a Alert) Record() AlertRecord {
	return AlertRecord{
		ID:           a.ID,
		Level:        a.Level,
		MetricName:   a.Sample.Metric,
		SampledValue: a.Sample.Value,
		Unit:         a.Sample.Unit,
		Threshold:    a.Threshold.Value,
		Comparison:   a.Threshold.Comparison,
		SampledAt:    a.Sample.Timestamp,
		Timestamp:    a.Timestamp,
		Host:         a.Host,
		Message:      a.Message,
	}
}

// MarshalJSON encodes the alert as its flat AlertRecord.
func (a Alert) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Record())
}
