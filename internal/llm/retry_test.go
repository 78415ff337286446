package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"coi-backend/internal/shared/retry"
)

func TestWithRetryStopsOnPermanentFailure(t *testing.T) {
	calls := 0
	base := Func(func(ctx context.Context, instruction, text string) (string, error) {
		calls++
		return "", retry.Permanent(errors.New("openai error: http status 401"))
	})
	_, err := WithRetry(base, retry.Policy{Timeout: time.Second, MaxAttempts: 3, Base: time.Millisecond}).
		Extract(context.Background(), "q", "t")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestWithRetryReturnsOutput(t *testing.T) {
	calls := 0
	base := Func(func(ctx context.Context, instruction, text string) (string, error) {
		calls++
		if calls == 1 {
			return "", context.DeadlineExceeded
		}
		return `{"a":1}`, nil
	})
	out, err := WithRetry(base, retry.Policy{Timeout: time.Second, MaxAttempts: 2, Base: time.Millisecond}).
		Extract(context.Background(), "q", "t")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != `{"a":1}` {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUnconfigured(t *testing.T) {
	if _, err := (Unconfigured{}).Extract(context.Background(), "q", "t"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
