package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     nil,
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	cfg := testConfig(3)
	cfg.Context = context.Background()

	err := Do(func() error {
		calls++
		return nil
	}, cfg)

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	cfg := testConfig(3)
	cfg.Context = context.Background()

	err := Do(func() error {
		calls++
		if calls < 3 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "connection reset"}
		}
		return nil
	}, cfg)

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	cfg := testConfig(3)
	cfg.Context = context.Background()

	wantErr := &errs.Error{Type: errs.ErrorTypeNotFound, Message: "gone", Code: 404}
	err := Do(func() error {
		calls++
		return wantErr
	}, cfg)

	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestDoSingleAttemptReturnsBareError(t *testing.T) {
	// MaxAttempts of 1 is the downloader's default: the error comes back
	// unwrapped, with no retry framing.
	cfg := testConfig(1)
	cfg.Context = context.Background()

	wantErr := &errs.Error{Type: errs.ErrorTypeServerError, Message: "bad gateway", Code: 502}
	err := Do(func() error { return wantErr }, cfg)

	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected the original error, got %v", err)
	}
	if err.Error() != wantErr.Error() {
		t.Errorf("Expected bare error, got %q", err.Error())
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := testConfig(3)
	cfg.Context = context.Background()

	err := Do(func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "unavailable", Code: 503}
	}, cfg)

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetrierWithContextStopsBackoffWait(t *testing.T) {
	cfg := testConfig(3)
	cfg.Backoff = &ConstantBackoff{Delay: time.Minute}
	r := NewRetrier(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.WithContext(ctx).Do(func() error {
		calls++
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "connection reset"}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation to end the backoff wait, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no further attempts after cancellation, got %d", calls)
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 5 * time.Second}

	if got := cb.NextDelay(1); got != 5*time.Second {
		t.Errorf("Expected 5s, got %v", got)
	}
	if got := cb.NextDelay(4); got != 5*time.Second {
		t.Errorf("Expected 5s, got %v", got)
	}
	if got := cb.NextDelay(0); got != 0 {
		t.Errorf("Expected 0 for attempt 0, got %v", got)
	}
}

func TestExponentialBackoffGrows(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	if got := eb.NextDelay(1); got != time.Second {
		t.Errorf("Expected 1s for first attempt, got %v", got)
	}
	if got := eb.NextDelay(2); got != 2*time.Second {
		t.Errorf("Expected 2s for second attempt, got %v", got)
	}
	if got := eb.NextDelay(10); got != 10*time.Second {
		t.Errorf("Expected cap at 10s, got %v", got)
	}
}
