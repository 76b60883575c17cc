// Package alert implements alert delivery to pluggable sinks.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// Sink is an alert destination.
type Sink interface {
	Send(ctx context.Context, alert types.Alert) error
	Name() string
}

// Dispatcher fans an alert out to every configured sink. It is itself a Sink,
// so the monitor can treat one sink and many sinks the same way.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher from alert configs.
func NewDispatcher(configs []types.AlertConfig, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{logger: logger}
	for i, cfg := range configs {
		sink, err := newSink(cfg, logger)
		if err != nil {
			_ = d.Close()
			return nil, &types.ConfigurationError{
				Field:  fmt.Sprintf("alerts[%d]", i),
				Reason: fmt.Sprintf("creating %s sink: %v", cfg.Type, err),
			}
		}
		if cfg.Breaker != nil {
			sink = NewBreakerSink(sink, BreakerSettings{
				Failures: cfg.Breaker.Failures,
				Cooldown: time.Duration(cfg.Breaker.CooldownMs) * time.Millisecond,
			}, logger)
		}
		d.sinks = append(d.sinks, sink)
	}
	return d, nil
}

// AddSink registers an additional sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Len returns the number of registered sinks.
func (d *Dispatcher) Len() int { return len(d.sinks) }

// Name returns the sink identifier.
func (d *Dispatcher) Name() string { return "dispatcher" }

// Send delivers the alert to all sinks concurrently. A failing sink does not
// prevent delivery to the others; every failure is logged and the joined
// *types.SinkError values are returned.
func (d *Dispatcher) Send(ctx context.Context, alert types.Alert) error {
	switch len(d.sinks) {
	case 0:
		return nil
	case 1:
		return d.send(ctx, d.sinks[0], alert)
	}

	p := pool.New().WithMaxGoroutines(len(d.sinks)).WithErrors()
	for _, sink := range d.sinks {
		sink := sink
		p.Go(func() error {
			return d.send(ctx, sink, alert)
		})
	}
	return p.Wait()
}

func (d *Dispatcher) send(ctx context.Context, sink Sink, alert types.Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &types.SinkError{Sink: sink.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			d.logger.Error("alert delivery failed", "sink", sink.Name(), "alert", alert.ID, "error", err)
		}
	}()

	if err := sink.Send(ctx, alert); err != nil {
		var se *types.SinkError
		if errors.As(err, &se) {
			return err
		}
		return &types.SinkError{Sink: sink.Name(), Err: err}
	}
	return nil
}

// Close releases sinks that hold resources such as open files or broker
// connections.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, sink := range d.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s sink: %w", sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func newSink(cfg types.AlertConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Type {
	case types.AlertConsole:
		return NewConsoleSink(nil), nil
	case types.AlertLog:
		return NewLogSink(logger), nil
	case types.AlertFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file path required")
		}
		return NewFileSink(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups)
	case types.AlertWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook URL required")
		}
		// Header values may hold ${VAR} references to secrets.
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[k] = os.ExpandEnv(v)
		}
		return NewWebhookSink(cfg.URL, WithHeaders(headers)), nil
	case types.AlertSQS:
		return NewSQSSink(cfg.QueueURL, WithSQSRegion(cfg.Region))
	case types.AlertEventBridge:
		return NewEventBridgeSink(cfg.EventBus, cfg.Source, cfg.DetailType, WithEventBridgeRegion(cfg.Region))
	case types.AlertKafka:
		return NewKafkaSink(cfg.Brokers, cfg.Topic)
	case types.AlertEmail:
		return NewEmailSink(EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: os.ExpandEnv(cfg.Password),
			From:     cfg.From,
			To:       cfg.To,
		})
	default:
		return nil, fmt.Errorf("unknown alert type %q", cfg.Type)
	}
}
