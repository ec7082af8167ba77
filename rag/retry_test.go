package rag

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy(sleeps *[]time.Duration) RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return p
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var sleeps []time.Duration
	p := testPolicy(&sleeps)

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, sleeps[i], want[i])
		}
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	p := testPolicy(&sleeps)

	calls := 0
	wantErr := errors.New("always fails")
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 5 {
		t.Errorf("expected 5 calls, got %d", calls)
	}
	// Delays double: 500ms, 1s, 2s, 4s. No sleep after the final attempt.
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
	}
	if len(sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, sleeps[i], want[i])
		}
	}
}

func TestRetryAuthErrorNotRetried(t *testing.T) {
	var sleeps []time.Duration
	p := testPolicy(&sleeps)

	calls := 0
	authErr := ExternalError("openai", ReasonAuth, "authentication failed", errors.New("401"))
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return authErr
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("auth error retried: %d calls", calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("unexpected sleeps: %v", sleeps)
	}
}

func TestRetryValidationErrorNotRetried(t *testing.T) {
	var sleeps []time.Duration
	p := testPolicy(&sleeps)

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		return ValidationError("bad input")
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("validation error retried: %d calls", calls)
	}
}

func TestRetryRateLimitRetried(t *testing.T) {
	var sleeps []time.Duration
	p := testPolicy(&sleeps)

	calls := 0
	err := p.Do(context.Background(), "op", func() error {
		calls++
		if calls == 1 {
			return ExternalError("openai", ReasonRateLimit, "rate limit exceeded", errors.New("429"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected rate limit retry, got %d calls", calls)
	}
}

func TestRetryContextCancelStopsBackoff(t *testing.T) {
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	failure := errors.New("fails")
	err := p.Do(ctx, "op", func() error {
		calls++
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call with cancelled context, got %d", calls)
	}
}
