// Package retry wraps fallible operations with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Defaults used when a Policy field is left zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 3 * time.Second

	multiplier  = 2
	maxInterval = 24 * time.Hour
)

// Policy configures a retry loop. Attempt k (1-based) that fails is followed
// by a wait of BaseDelay * 2^(k-1) before attempt k+1.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Timer overrides the sleep implementation (tests).
	Timer backoff.Timer
}

// Operation is a single attempt. attempt is 1-based.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Do runs op until it succeeds or the attempts are exhausted. Exhaustion is
// reported as ok=false together with the last attempt error, never as a panic.
// Each failed attempt is logged at warn level and exhaustion at error level.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, op Operation[T]) (T, bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	base := p.BaseDelay
	if base < 0 {
		base = 0
	}

	attempt := 0
	var lastErr error
	wrapped := func() (T, error) {
		attempt++
		val, err := op(ctx, attempt)
		if err != nil {
			lastErr = err
			logger.Warn("attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err))
			return val, err
		}
		return val, nil
	}
	notify := func(_ error, wait time.Duration) {
		logger.Debug("retrying after backoff", zap.Int("next_attempt", attempt+1), zap.Duration("wait", wait))
	}

	val, err := backoff.RetryNotifyWithTimerAndData(wrapped, newBackOff(ctx, base, maxAttempts), notify, p.Timer)
	if err == nil {
		return val, true, nil
	}
	if lastErr == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lastErr = err
	}
	logger.Error("retries exhausted", zap.Int("attempts", attempt), zap.Error(lastErr))
	var zero T
	return zero, false, lastErr
}

// Delays returns the wait before each retry for the given policy.
func Delays(p Policy) []time.Duration {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	out := make([]time.Duration, 0, maxAttempts-1)
	d := p.BaseDelay
	for k := 1; k < maxAttempts; k++ {
		out = append(out, d)
		d *= multiplier
	}
	return out
}

func newBackOff(ctx context.Context, base time.Duration, maxAttempts int) backoff.BackOffContext {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          multiplier,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts-1)), ctx)
}
