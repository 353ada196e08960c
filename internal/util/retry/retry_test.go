package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("throttled")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))

	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	base := errors.New("persistent error")
	err := WithExponentialBackoff(context.Background(), func(context.Context) error {
		attempts++
		return base
	}, WithMaxRetries(3), WithInitialDelay(time.Millisecond))

	if !errors.Is(err, base) {
		t.Errorf("Expected wrapped persistent error, got: %v", err)
	}
	// total attempts = retries + 1
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_ContextCancelledBeforeStart(t *testing.T) {
	t.Parallel()
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func(context.Context) error {
		attempts++
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if attempts != 0 {
		t.Errorf("Expected no attempt on a cancelled context, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_ContextTimeout(t *testing.T) {
	t.Parallel()
	attempts := 0
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WithExponentialBackoff(ctx, func(context.Context) error {
		attempts++
		return errors.New("error")
	}, WithInitialDelay(100*time.Millisecond), WithMaxRetries(10))

	if err == nil {
		t.Error("Expected error due to context timeout, got nil")
	}
	if attempts > 2 {
		t.Errorf("Expected at most 2 attempts before timeout, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_FatalError(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func(context.Context) error {
		attempts++
		return Fatal(errors.New("unknown profile"))
	}, WithInitialDelay(time.Millisecond))

	if !IsFatal(err) {
		t.Errorf("Expected fatal error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_Retryable(t *testing.T) {
	t.Parallel()
	transient := errors.New("connection reset")
	permanent := errors.New("AccessDenied")

	attempts := 0
	err := WithExponentialBackoff(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 1 {
			return transient
		}
		return permanent
	},
		WithInitialDelay(time.Millisecond),
		WithMaxRetries(5),
		WithRetryable(func(err error) bool { return errors.Is(err, transient) }))

	if !errors.Is(err, permanent) {
		t.Errorf("Expected permanent error, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_OnRetry(t *testing.T) {
	t.Parallel()
	var seen []int
	_ = WithExponentialBackoff(context.Background(), func(context.Context) error {
		return errors.New("error")
	},
		WithInitialDelay(time.Millisecond),
		WithMaxRetries(2),
		WithOnRetry(func(attempt int, _ error) { seen = append(seen, attempt) }))

	if fmt.Sprint(seen) != "[1 2]" {
		t.Errorf("Expected retry hook for attempts [1 2], got %v", seen)
	}
}

func TestWithExponentialBackoff_BackoffTiming(t *testing.T) {
	t.Parallel()
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	err := WithExponentialBackoff(context.Background(), func(context.Context) error {
		attempts++
		now := time.Now()
		if attempts > 1 {
			delays = append(delays, now.Sub(lastTime))
		}
		lastTime = now
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	},
		WithMaxRetries(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(150*time.Millisecond))

	if err != nil {
		t.Errorf("Expected success after retries, got: %v", err)
	}
	if len(delays) != 3 {
		t.Fatalf("Expected 3 delays, got: %d", len(delays))
	}

	tolerance := 25 * time.Millisecond
	expected := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 150 * time.Millisecond}
	for i, delay := range delays {
		if delay < expected[i]-tolerance || delay > expected[i]+tolerance {
			t.Errorf("Delay %d: expected ~%v, got %v", i+1, expected[i], delay)
		}
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()
	if Fatal(nil) != nil {
		t.Error("Expected nil for nil error")
	}

	sentinel := errors.New("sentinel error")
	wrapped := fmt.Errorf("context: %w", Fatal(sentinel))
	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should find sentinel through FatalError")
	}
	if !IsFatal(wrapped) {
		t.Error("IsFatal should detect FatalError through fmt.Errorf wrapping")
	}
	if IsFatal(sentinel) {
		t.Error("plain error must not be fatal")
	}
	if Fatal(sentinel).Error() != sentinel.Error() {
		t.Error("FatalError must keep the message of the wrapped error")
	}
}
