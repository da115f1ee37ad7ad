// Package retry wraps upstream calls with classification-based retry,
// exponential backoff, and process-wide metric accounting. It is the single
// place in the service that decides whether a failed upstream call is worth
// trying again.
package retry

import (
	"context"
	"math"
	"strconv"
	"time"
)

// Policy controls the backoff loop. Delay is computed as
// min(MaxDelay, BaseDelay * Multiplier^attempt).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// AttemptTimeout bounds a single attempt; zero means no per-attempt
	// deadline beyond the caller's context.
	AttemptTimeout time.Duration
}

// DefaultPolicy matches the defaults named in the sync design: up to 5
// attempts, starting at 500ms, capped at 30s, doubling each time.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		AttemptTimeout: 10 * time.Second,
	}
}

// Executor runs operations under a Policy, recording metrics for every
// attempt. It holds no per-call state; a single Executor is safe to share
// process-wide.
type Executor struct {
	metrics *Metrics
}

// NewExecutor builds an Executor backed by the given metrics sink. Pass nil
// to use the package's default process-wide Prometheus-backed metrics.
func NewExecutor(metrics *Metrics) *Executor {
	if metrics == nil {
		metrics = DefaultMetrics
	}
	return &Executor{metrics: metrics}
}

// Execute runs op, retrying according to policy when the returned error
// classifies as retryable. It returns the last classified error when the
// attempt budget or the caller's context deadline is exhausted, preferring
// to surface that over waiting out a backoff the caller no longer has time
// for.
func Execute[T any](ctx context.Context, ex *Executor, label string, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}

		start := time.Now()
		result, err := op(attemptCtx)
		if cancel != nil {
			cancel()
		}
		elapsed := time.Since(start)
		ex.metrics.observeCall(label, elapsed)

		if err == nil {
			return result, nil
		}

		classified := Classify(err)
		ex.metrics.observeError(classified.Kind)
		lastErr = classified

		if !classified.Kind.Retryable() || attempt == policy.MaxAttempts-1 {
			return zero, classified
		}

		delay := backoffDelay(policy, attempt)
		if classified.Kind == KindRateLimited {
			if d, ok := parseRetryAfter(classified.RetryAfter); ok {
				delay = d
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(policy.Multiplier, float64(attempt))
	if delay > float64(policy.MaxDelay) {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := time.Parse(time.RFC1123, value); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
	}
	return 0, false
}
