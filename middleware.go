package xmsg

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
)

// RetryConfig controls retry behavior for RetryMiddleware.
// The bus never retries on its own; modules opt in per listener.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first execution.
	MaxAttempts int
	// Backoff computes the base wait before the next attempt.
	Backoff func(attempt int) time.Duration
	// RetryIf, when provided, returns true if the error should be retried.
	RetryIf func(err error) bool
	// Jitter adds up to [0, Jitter] random delay to the base backoff.
	Jitter time.Duration
	// Clock times the backoff waits; nil uses the wall clock.
	Clock clock.Clock
}

// RetryMiddleware provides bounded, selective retries around a handler.
// Backoff sleeps block the delivering goroutine, so keep waits short in queued mode.
func RetryMiddleware(cfg RetryConfig) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			attempts := cfg.MaxAttempts
			if attempts < 1 {
				attempts = 1
			}
			shouldRetry := cfg.RetryIf
			if shouldRetry == nil {
				shouldRetry = func(error) bool { return true }
			}
			clk := cfg.Clock
			if clk == nil {
				clk = clock.New()
			}
			var lastErr error
			for i := 1; i <= attempts; i++ {
				lastErr = next(ctx, msg)
				if lastErr == nil {
					return nil
				}
				if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return lastErr
				}
				if i == attempts || !shouldRetry(lastErr) {
					return lastErr
				}
				if cfg.Backoff != nil {
					wait := cfg.Backoff(i)
					if cfg.Jitter > 0 {
						wait += time.Duration(rand.Int63n(int64(cfg.Jitter)))
					}
					timer := clk.Timer(wait)
					select {
					case <-ctx.Done():
						timer.Stop()
						return lastErr
					case <-timer.C:
					}
				}
			}
			return lastErr
		}
	}
}

// TimeoutMiddleware bounds how long the delivery loop waits for a handler.
// The handler keeps running in its own goroutine after the deadline; it should honor ctx.
func TimeoutMiddleware(d time.Duration) Middleware {
	if d <= 0 {
		return func(next Handler) Handler { return next }
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						errCh <- fmt.Errorf("%w: %v", ErrHandlerPanic, r)
					}
				}()
				errCh <- next(tctx, msg)
			}()

			select {
			case <-tctx.Done():
				return tctx.Err()
			case err := <-errCh:
				return err
			}
		}
	}
}

// RecoveryMiddleware converts handler panics into errors wrapping ErrHandlerPanic.
func RecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// Chain composes middlewares around a handler; the first middleware is the outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	wrapped := h
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
