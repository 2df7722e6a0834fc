package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/desertthunder/synclify/internal/shared"
)

// RetryPolicy bounds retries of transient failures.
type RetryPolicy struct {
	MaxTries int
	Base     time.Duration
	Jitter   time.Duration
}

// DefaultRetryPolicy waits 0.5s, 1s, 2s, 4s between five tries.
var DefaultRetryPolicy = RetryPolicy{MaxTries: 5, Base: 500 * time.Millisecond, Jitter: 200 * time.Millisecond}

// RetryPolicyFrom builds a policy from configuration.
func RetryPolicyFrom(cfg shared.RetryConfig) RetryPolicy {
	return RetryPolicy{MaxTries: cfg.MaxTries, Base: cfg.BaseDelay(), Jitter: cfg.Jitter()}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}

	tries := p.MaxTries
	if tries < 1 {
		tries = 1
	}
	return retry.WithMaxRetries(uint64(tries-1), b)
}

// Retry calls fn until it succeeds, fails with a non transient error, or the policy runs out.
// The last error is returned unwrapped.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && shared.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
