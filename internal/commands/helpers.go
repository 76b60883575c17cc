// Package commands implements the CLI subcommands for the healthwatch binary.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/healthwatch/internal/config"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// Version is reported in telemetry resources. main sets it from build flags.
var Version = "dev"

// overrides are command-line values layered over the config file. Only flags
// the user actually set are applied.
type overrides struct {
	metric     string
	threshold  float64
	comparison string
	intervalMs int64
	maxCycles  int
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", config.DefaultFile, "Path to the config file")
}

func addOverrideFlags(cmd *cobra.Command, ov *overrides) {
	f := cmd.Flags()
	f.StringVar(&ov.metric, "metric", "", "Metric to watch (overrides metricName)")
	f.Float64Var(&ov.threshold, "threshold", 0, "Threshold value (overrides thresholdValue)")
	f.StringVar(&ov.comparison, "comparison", "", "GT, GTE, LT or LTE (overrides comparison)")
	f.Int64Var(&ov.intervalMs, "interval-ms", 0, "Poll interval in milliseconds (overrides pollIntervalMs)")
	f.IntVar(&ov.maxCycles, "max-cycles", 0, "Stop after this many cycles, 0 runs until stopped (overrides maxCycles)")
}

func (ov *overrides) apply(cmd *cobra.Command, cfg *types.ProjectConfig) {
	f := cmd.Flags()
	if f.Changed("metric") {
		cfg.MetricName = ov.metric
	}
	if f.Changed("threshold") {
		v := ov.threshold
		cfg.ThresholdValue = &v
	}
	if f.Changed("comparison") {
		cfg.Comparison = ov.comparison
	}
	if f.Changed("interval-ms") {
		cfg.PollIntervalMs = ov.intervalMs
	}
	if f.Changed("max-cycles") {
		cfg.MaxCycles = ov.maxCycles
	}
}

// loadConfig reads path, applies flag overrides and defaults, and validates.
// A missing default config file is not an error; flags alone may be enough.
func loadConfig(cmd *cobra.Command, path string, ov *overrides) (*types.ProjectConfig, error) {
	cfg, err := config.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, err
		}
		cfg = &types.ProjectConfig{}
	}
	if ov != nil {
		ov.apply(cmd, cfg)
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PrintError renders a ConfigurationError with its field highlighted.
// Other errors are printed as-is.
func PrintError(w io.Writer, err error) {
	var ce *types.ConfigurationError
	if errors.As(err, &ce) && ce.Field != "" {
		_, _ = fmt.Fprintf(w, "%s %s %s\n", color.RedString("✗"), color.New(color.Bold).Sprint(ce.Field), ce.Reason)
		return
	}
	_, _ = fmt.Fprintf(w, "%s %v\n", color.RedString("✗"), err)
}
