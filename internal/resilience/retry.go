// Package resilience retries store operations that fail for transient
// reasons: lock contention, serialization conflicts, dropped connections.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry attempts and exponential backoff with jitter.
type Policy struct {
	// Attempts is the total number of tries. 1 disables retrying.
	Attempts int

	// Backoff is the delay before the first retry; each later retry doubles it.
	Backoff time.Duration

	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration

	// Jitter spreads each delay by ±Jitter of its value.
	Jitter float64

	// Retryable overrides IsTransient.
	Retryable func(err error) bool
}

// DefaultPolicy suits local database writes.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   4,
		Backoff:    50 * time.Millisecond,
		MaxBackoff: 2 * time.Second,
		Jitter:     0.2,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = def.Backoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the wait before retry number attempt (1-based), jitter
// excluded.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.Backoff) * math.Pow(2, float64(attempt-1))
	return time.Duration(math.Min(d, float64(p.MaxBackoff)))
}

func (p Policy) jittered(attempt int) time.Duration {
	d := float64(p.Delay(attempt))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// Retry runs fn until it succeeds, returns a permanent error, exhausts the
// policy, or ctx ends. The last error is returned unchanged.
func Retry[T any](ctx context.Context, op string, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.Attempts || ctx.Err() != nil || !p.Retryable(err) {
			return zero, err
		}

		delay := p.jittered(attempt)
		zap.L().Warn("retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// Do is Retry for operations without a result.
func Do(ctx context.Context, op string, p Policy, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, op, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
