package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a retry loop with exponential backoff.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration
	// Retryable reports whether err is worth another attempt. When nil every
	// error except a context error is retried.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, the attempts are spent, ctx is done, or fn
// returns an error the policy will not retry. It returns the last error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 || !p.retryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// DoWithRetry retries fn with a plain exponential backoff. Store pings at
// startup use it.
func DoWithRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	return Policy{Attempts: attempts, BaseDelay: baseDelay}.Do(ctx, fn)
}
