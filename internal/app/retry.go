package app

import (
	"context"
	"time"

	"github.com/tessera-live/tessera/internal/clock"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 500 * time.Millisecond
)

// retryPolicy is a bounded exponential backoff. It is only ever applied to
// operations with no committed side effect: once a ledger transaction handle
// exists, nothing is retried.
type retryPolicy struct {
	attempts int
	base     time.Duration
}

func (p retryPolicy) withDefaults() retryPolicy {
	if p.attempts <= 0 {
		p.attempts = defaultRetryAttempts
	}
	if p.base <= 0 {
		p.base = defaultRetryBase
	}
	return p
}

// run invokes fn up to p.attempts times, sleeping base, 2*base, 4*base...
// between attempts. A non-retryable error or ctx cancellation stops early;
// the last error is returned on exhaustion.
func (p retryPolicy) run(ctx context.Context, clk clock.Clock, retryable func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			delay := p.base << (attempt - 1)
			if err := clk.Sleep(ctx, delay); err != nil {
				return lastErr
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
