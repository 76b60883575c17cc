package alert

import (
	"context"
	"log/slog"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// LogSink emits alerts as structured log entries.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name returns the sink identifier.
func (s *LogSink) Name() string { return "log" }

// Send logs the alert at a level matching its severity.
func (s *LogSink) Send(ctx context.Context, alert types.Alert) error {
	level := slog.LevelWarn
	switch alert.Level {
	case types.AlertLevelError:
		level = slog.LevelError
	case types.AlertLevelInfo:
		level = slog.LevelInfo
	}

	s.logger.Log(ctx, level, alert.Message,
		"alert", alert.ID,
		"metric", alert.Sample.Metric,
		"value", alert.Sample.Value,
		"threshold", alert.Threshold.Value,
		"comparison", string(alert.Threshold.Comparison),
		"sampled_at", alert.Sample.Timestamp,
		"detected_at", alert.Timestamp,
	)
	return nil
}
