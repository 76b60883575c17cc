// Package types defines the public domain types for the healthwatch monitor.
package types

import (
	"fmt"
	"strings"
)

// Comparison is the direction in which a sample is compared to a threshold.
type Comparison string

// Comparison values. GT and GTE raise alerts when a value climbs past the
// boundary; LT and LTE raise alerts when it falls to or below it.
const (
	CompareGT  Comparison = "GT"
	CompareGTE Comparison = "GTE"
	CompareLT  Comparison = "LT"
	CompareLTE Comparison = "LTE"
)

// ParseComparison accepts the enum names case-insensitively as well as the
// symbolic operators ">", ">=", "<" and "<=".
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GT", ">":
		return CompareGT, nil
	case "GTE", ">=":
		return CompareGTE, nil
	case "LT", "<":
		return CompareLT, nil
	case "LTE", "<=":
		return CompareLTE, nil
	default:
		return "", fmt.Errorf("unknown comparison %q", s)
	}
}

// Symbol returns the operator form of the comparison, e.g. ">=".
func (c Comparison) Symbol() string {
	switch c {
	case CompareGT:
		return ">"
	case CompareGTE:
		return ">="
	case CompareLT:
		return "<"
	case CompareLTE:
		return "<="
	default:
		return "?"
	}
}

// Valid reports whether c is one of the known comparisons.
func (c Comparison) Valid() bool {
	switch c {
	case CompareGT, CompareGTE, CompareLT, CompareLTE:
		return true
	}
	return false
}

// AlertType defines the alert sink type.
type AlertType string

// AlertType values enumerate the supported alert sink backends.
const (
	AlertConsole     AlertType = "console"
	AlertLog         AlertType = "log"
	AlertFile        AlertType = "file"
	AlertWebhook     AlertType = "webhook"
	AlertSQS         AlertType = "sqs"
	AlertEventBridge AlertType = "eventbridge"
	AlertKafka       AlertType = "kafka"
	AlertEmail       AlertType = "email"
)

// AlertLevel is the severity attached to every alert a monitor raises.
type AlertLevel string

const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelInfo    AlertLevel = "info"
)

// ParseAlertLevel maps a config string to an AlertLevel. Empty means warning.
func ParseAlertLevel(s string) (AlertLevel, error) {
	switch AlertLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return AlertLevelWarning, nil
	case AlertLevelError:
		return AlertLevelError, nil
	case AlertLevelWarning, "warn":
		return AlertLevelWarning, nil
	case AlertLevelInfo:
		return AlertLevelInfo, nil
	default:
		return "", fmt.Errorf("unknown alert level %q", s)
	}
}
