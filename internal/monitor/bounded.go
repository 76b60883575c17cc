package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dwsmith1983/healthwatch/pkg/types"
)

// bounded runs fn with a deadline of timeout. A dependency that ignores its
// context is abandoned when the deadline passes: its goroutine finishes in the
// background and the result is dropped. Panics in fn are returned as errors.
// Expiry is reported as an error wrapping types.ErrTimeout.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("panic: %v", p)
			}
			done <- r
		}()
		r.val, r.err = fn(ctx)
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return r.val, fmt.Errorf("%w after %s: %w", types.ErrTimeout, timeout, r.err)
		}
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w after %s", types.ErrTimeout, timeout)
	}
}
