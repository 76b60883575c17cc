package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/healthwatch/internal/daemon"
	"github.com/dwsmith1983/healthwatch/internal/logging"
	"github.com/dwsmith1983/healthwatch/internal/monitor"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	var path string
	var ov overrides
	var cycles int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a fixed number of cycles and report the result",
		Long: `Runs the monitor for --cycles cycles with the configured sinks, prints a
summary and exits non-zero if any cycle violated the threshold. The status
server and telemetry export are not started.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, path, &ov, cycles)
		},
	}

	addConfigFlag(cmd, &path)
	addOverrideFlags(cmd, &ov)
	cmd.Flags().IntVarP(&cycles, "cycles", "n", 1, "Number of cycles to run")
	return cmd
}

func runCheck(cmd *cobra.Command, path string, ov *overrides, cycles int) error {
	if cycles < 1 {
		return fmt.Errorf("--cycles must be at least 1")
	}
	cfg, err := loadConfig(cmd, path, ov)
	if err != nil {
		return err
	}
	cfg.MaxCycles = cycles
	cfg.Server = nil
	cfg.Telemetry = nil

	logger, closer := logging.New(cfg.Logging)
	defer func() { _ = closer.Close() }()

	ctx := cmd.Context()
	rt, err := daemon.Build(ctx, cfg, Version, nil, logger)
	if err != nil {
		return err
	}
	runErr := daemon.RunForeground(ctx, rt.Run)
	_ = rt.Close(ctx)
	if runErr != nil {
		return runErr
	}

	return report(cmd.OutOrStdout(), rt.Monitor.Stats())
}

// report prints the run summary and returns an error when the run found a
// violation or could not read the metric.
func report(out io.Writer, st monitor.Stats) error {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(out, "%s %s %g\n", st.Metric, st.Threshold.Comparison.Symbol(), st.Threshold.Value)
	_, _ = fmt.Fprintf(out, "  cycles:          %d\n", st.Cycles)
	_, _ = fmt.Fprintf(out, "  alerts:          %d\n", st.Alerts)
	_, _ = fmt.Fprintf(out, "  sampling faults: %d\n", st.SamplingFaults)
	_, _ = fmt.Fprintf(out, "  sink faults:     %d\n", st.SinkFaults)

	switch {
	case st.Cycles == 0:
		_, _ = fmt.Fprintln(out, color.YellowString("! stopped before the first cycle completed"))
		return fmt.Errorf("check stopped before any cycle completed")
	case st.Alerts > 0:
		_, _ = fmt.Fprintln(out, color.RedString("✗ threshold violated"))
		return fmt.Errorf("threshold violated in %d of %d cycles", st.Alerts, st.Cycles)
	case st.SamplingFaults == st.Cycles:
		_, _ = fmt.Fprintln(out, color.YellowString("! no sample could be read"))
		return fmt.Errorf("no sample could be read in %d cycles", st.Cycles)
	default:
		_, _ = fmt.Fprintln(out, color.GreenString("✓ within threshold"))
		return nil
	}
}
