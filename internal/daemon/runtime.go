// Package daemon assembles a monitor from configuration and runs it in the
// foreground or under the host's service manager.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/dwsmith1983/healthwatch/internal/alert"
	"github.com/dwsmith1983/healthwatch/internal/config"
	"github.com/dwsmith1983/healthwatch/internal/metrics"
	"github.com/dwsmith1983/healthwatch/internal/monitor"
	"github.com/dwsmith1983/healthwatch/internal/server"
	"github.com/dwsmith1983/healthwatch/internal/source"
	"github.com/dwsmith1983/healthwatch/internal/telemetry"
	"github.com/dwsmith1983/healthwatch/pkg/types"
)

const serverShutdownTimeout = 5 * time.Second

// Runtime is a fully wired monitor with its alert sinks, telemetry and
// optional status server.
type Runtime struct {
	Monitor    *monitor.Monitor
	Dispatcher *alert.Dispatcher
	Server     *server.Server
	Metrics    *metrics.Recorder

	logger            *slog.Logger
	shutdownTelemetry telemetry.ShutdownFunc
}

// Build wires a Runtime from a validated config. src overrides the built-in
// metric source when non-nil. Close must be called when Build succeeds.
func Build(ctx context.Context, cfg *types.ProjectConfig, version string, src monitor.Source, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if src == nil {
		s, err := source.New(cfg.MetricName, config.SourceOptions(cfg))
		if err != nil {
			return nil, err
		}
		src = s
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}

	dispatcher, err := alert.NewDispatcher(cfg.Alerts, logger)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	rt := &Runtime{
		Dispatcher:        dispatcher,
		logger:            logger,
		shutdownTelemetry: shutdown,
	}

	opts := []monitor.Option{monitor.WithLogger(logger)}
	if cfg.Server != nil {
		rt.Metrics = metrics.NewRecorder(src.Name())
		opts = append(opts, monitor.WithObserver(rt.Metrics))
	}
	if telemetry.Enabled(cfg.Telemetry) {
		rec, err := telemetry.NewRecorder(otel.GetMeterProvider())
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		opts = append(opts, monitor.WithObserver(rec))
	}

	rt.Monitor = monitor.New(config.MonitorConfig(cfg), src, dispatcher, opts...)
	if cfg.Server != nil {
		rt.Server = server.New(cfg.Server.Addr, rt.Monitor, rt.Metrics.Handler(), logger)
	}
	return rt, nil
}

// Run runs the monitor, and the status server when configured, until ctx is
// cancelled or the monitor reaches its cycle limit. A server failure stops
// the monitor.
func (rt *Runtime) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return rt.Monitor.Run(gctx)
	})

	if rt.Server != nil {
		g.Go(rt.Server.Start)
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
			defer scancel()
			if err := rt.Server.Stop(sctx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close releases sinks and flushes telemetry.
func (rt *Runtime) Close(ctx context.Context) error {
	if err := rt.Dispatcher.Close(); err != nil {
		rt.logger.Warn("closing alert sinks", "error", err)
	}
	return rt.shutdownTelemetry(ctx)
}

// RunConfig builds and runs a Runtime for cfg, closing it on return.
func RunConfig(ctx context.Context, cfg *types.ProjectConfig, version string, logger *slog.Logger) error {
	rt, err := Build(ctx, cfg, version, nil, logger)
	if err != nil {
		return err
	}
	runErr := rt.Run(ctx)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := rt.Close(cctx); err != nil {
		rt.logger.Warn("telemetry shutdown", "error", err)
	}
	return runErr
}
