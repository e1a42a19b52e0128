package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), fastConfig(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	callCount := 0
	wantErr := errors.New("persistent failure")
	err := Do(context.Background(), fastConfig(), func() error {
		callCount++
		return wantErr
	})

	if err != wantErr {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
	if callCount != 4 { // initial + 3 retries
		t.Errorf("expected 4 calls, got %d", callCount)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		return errors.New("always fails")
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDoWithResult(t *testing.T) {
	callCount := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		callCount++
		if callCount < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
}

type testRetryableErr struct {
	retryable bool
}

func (e *testRetryableErr) Error() string     { return "test error" }
func (e *testRetryableErr) IsRetryable() bool { return e.retryable }

func TestDoIfRetryable(t *testing.T) {
	t.Run("retries retryable error", func(t *testing.T) {
		callCount := 0
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			callCount++
			if callCount < 3 {
				return &testRetryableErr{retryable: true}
			}
			return nil
		})
		if err != nil {
			t.Errorf("expected success, got %v", err)
		}
		if callCount != 3 {
			t.Errorf("expected 3 calls, got %d", callCount)
		}
	})

	t.Run("fails immediately on permanent error", func(t *testing.T) {
		callCount := 0
		wantErr := &testRetryableErr{retryable: false}
		err := DoIfRetryable(context.Background(), fastConfig(), func() error {
			callCount++
			return wantErr
		})
		if err != wantErr {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
		if callCount != 1 {
			t.Errorf("expected 1 call (no retries), got %d", callCount)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"explicit retryable", &testRetryableErr{retryable: true}, true},
		{"explicit permanent", &testRetryableErr{retryable: false}, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limit", errors.New("HTTP 429: rate limit exceeded"), true},
		{"server error", errors.New("HTTP 503 service unavailable"), true},
		{"auth failure", errors.New("HTTP 401 unauthorized"), false},
		{"plain error", errors.New("knowledge base not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}
