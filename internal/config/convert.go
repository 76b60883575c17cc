package config

import (
	"time"

	"github.com/dwsmith1983/healthwatch/internal/monitor"
	"github.com/dwsmith1983/healthwatch/internal/source"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// MonitorConfig maps a validated project config onto the monitor's run config.
func MonitorConfig(cfg *types.ProjectConfig) monitor.Config {
	mc := monitor.Config{
		Interval:      ms(cfg.PollIntervalMs),
		SampleTimeout: ms(cfg.SampleTimeoutMs),
		SinkTimeout:   ms(cfg.SinkTimeoutMs),
		MaxCycles:     cfg.MaxCycles,
		Level:         types.AlertLevel(cfg.AlertLevel),
		Template:      cfg.MessageTemplate,
	}
	if cfg.ThresholdValue != nil {
		mc.Threshold.Value = *cfg.ThresholdValue
	}
	if c, err := types.ParseComparison(cfg.Comparison); err == nil {
		mc.Threshold.Comparison = c
	} else {
		mc.Threshold.Comparison = types.Comparison(cfg.Comparison)
	}
	return mc
}

// SourceOptions returns the metric source options held in cfg.
func SourceOptions(cfg *types.ProjectConfig) source.Options {
	return source.Options{
		SampleWindow: ms(cfg.SampleWindowMs),
		DiskPath:     cfg.DiskPath,
	}
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}
