package rag

import (
	"context"
	"time"
)

// RetryPolicy retries an operation with exponential backoff. It is applied
// by explicit composition at each call site; the zero value is unusable,
// use DefaultRetryPolicy or construct one with the knobs you need.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the sleep before the second attempt.
	BaseDelay time.Duration
	// Factor multiplies the delay after every failed attempt.
	Factor float64
	// Retryable reports whether an error is worth retrying. A nil
	// predicate retries everything.
	Retryable func(error) bool
	// Sleep is the wait function, overridable in tests. Nil means a
	// context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the provider call sites' needs: 5 attempts,
// 500ms base delay, doubling. Authentication and validation failures are
// not retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  5,
		BaseDelay: 500 * time.Millisecond,
		Factor:    2.0,
		Retryable: func(err error) bool {
			if IsKind(err, KindValidation) {
				return false
			}
			return ReasonOf(err) != ReasonAuth
		},
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, the error is
// classified non-retryable, or ctx is done. The last error propagates
// unchanged; no partial results are returned.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			GlobalLogger.Error("operation failed after retries", "op", op, "attempts", attempts, "error", err)
			return err
		}
		GlobalLogger.Warn("operation failed, retrying", "op", op, "attempt", attempt, "of", attempts, "delay", delay, "error", err)
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
