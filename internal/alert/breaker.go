package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// BreakerSettings configures a BreakerSink.
type BreakerSettings struct {
	Failures uint32        // consecutive failures before opening (default 5)
	Cooldown time.Duration // how long to stay open before probing (default 30s)
}

// BreakerSink wraps a sink with a circuit breaker so a sink that keeps failing
// or hanging is skipped for a cooldown instead of consuming a timeout every
// cycle. Rejections while open surface as gobreaker.ErrOpenState.
type BreakerSink struct {
	inner Sink
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerSink wraps inner with a circuit breaker.
func NewBreakerSink(inner Sink, settings BreakerSettings, logger *slog.Logger) *BreakerSink {
	if settings.Failures == 0 {
		settings.Failures = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	failures := settings.Failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("alert sink circuit changed", "sink", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerSink{inner: inner, cb: cb}
}

// Name returns the wrapped sink's identifier.
func (b *BreakerSink) Name() string { return b.inner.Name() }

// State returns the current breaker state.
func (b *BreakerSink) State() gobreaker.State { return b.cb.State() }

// Send delivers through the breaker.
func (b *BreakerSink) Send(ctx context.Context, alert types.Alert) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Send(ctx, alert)
	})
	return err
}

// Close closes the wrapped sink when it holds resources.
func (b *BreakerSink) Close() error {
	if c, ok := b.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
