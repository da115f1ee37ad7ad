package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestExecuteSucceedsWithoutRetry(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	calls := 0

	result, err := Execute(context.Background(), ex, "op", fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("got %q", result)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExecuteRetriesNetworkErrors(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	calls := 0

	result, err := Execute(context.Background(), ex, "op", fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset by peer")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Fatalf("got %d", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteDoesNotRetryQuotaExceeded(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	calls := 0

	_, err := Execute(context.Background(), ex, "op", fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	var classified *ClassifiedError
	if !errors.As(err, &classified) {
		t.Fatalf("expected ClassifiedError, got %T", err)
	}
	if classified.Kind != KindQuotaExceeded {
		t.Fatalf("expected KindQuotaExceeded, got %v", classified.Kind)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call (no retry), got %d", calls)
	}
}

func TestExecuteDoesNotRetryAuthFailed(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	calls := 0

	_, err := Execute(context.Background(), ex, "op", fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, &googleapi.Error{Code: 401}
	})

	var classified *ClassifiedError
	if !errors.As(err, &classified) || classified.Kind != KindAuthFailed {
		t.Fatalf("expected auth-failed classification, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestExecuteExhaustsAttemptBudget(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	calls := 0

	_, err := Execute(context.Background(), ex, "op", fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("connection reset")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != fastPolicy().MaxAttempts {
		t.Fatalf("expected %d calls, got %d", fastPolicy().MaxAttempts, calls)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Execute(ctx, ex, "op", Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return 0, errors.New("timeout contacting upstream")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected the loop to stop after cancellation, got %d calls", calls)
	}
}

func TestExecuteRateLimitedHonorsRetryAfter(t *testing.T) {
	ex := NewExecutor(NewMetrics())
	calls := 0

	start := time.Now()
	_, err := Execute(context.Background(), ex, "op", Policy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &googleapi.Error{Code: 429, Header: map[string][]string{"Retry-After": {"0"}}}
		}
		return 1, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if elapsed > time.Second {
		t.Fatalf("expected Retry-After:0 to short-circuit the 1s base delay, took %v", elapsed)
	}
}

func TestClassifyRecognizesInvalidGrant(t *testing.T) {
	c := Classify(errors.New("oauth2: \"invalid_grant\" \"Token has been expired or revoked\""))
	if c.Kind != KindAuthFailed {
		t.Fatalf("expected auth-failed, got %v", c.Kind)
	}
}

func TestMetricsSnapshotTracksCalls(t *testing.T) {
	m := NewMetrics()
	ex := NewExecutor(m)

	_, _ = Execute(context.Background(), ex, "op", fastPolicy(), func(ctx context.Context) (int, error) {
		return 1, nil
	})

	snap := m.Snapshot()
	if snap.CallCount != 1 {
		t.Fatalf("expected call count 1, got %d", snap.CallCount)
	}
	if snap.LastCall.IsZero() {
		t.Fatal("expected LastCall to be set")
	}

	m.Reset()
	if m.Snapshot().CallCount != 0 {
		t.Fatal("expected Reset to clear call count")
	}
}
