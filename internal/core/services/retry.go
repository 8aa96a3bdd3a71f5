package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// RetryPolicy controls exponential backoff for transient provider failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles each time.
	BaseDelay time.Duration

	// MaxDelay caps a single wait.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// delay returns the backoff before attempt (1-based retry number) with up to 20% jitter.
func (p RetryPolicy) delay(retry int) time.Duration {
	d := p.BaseDelay << (retry - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(d)/5 + 1))
	return d + jitter
}

// retry runs op until it succeeds, fails permanently, or attempts run out.
// Only errors classified by domain.IsTransient are retried.
func retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !domain.IsTransient(err) {
			return err
		}
		if serr := sleepWithCtx(ctx, p.delay(attempt)); serr != nil {
			return err
		}
	}
	return err
}

// sleepWithCtx sleeps for d or until ctx is done.
func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
