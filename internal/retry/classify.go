package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/api/googleapi"
)

// Kind names the closed set of ways an upstream call can fail, independent
// of the HTTP status code that produced it.
type Kind int

const (
	// KindOther covers anything not recognized below; never retried.
	KindOther Kind = iota
	// KindRateLimited is HTTP 429 or a body that names a rate-limit reason.
	KindRateLimited
	// KindQuotaExceeded is HTTP 403 with a daily-limit reason; never retried.
	KindQuotaExceeded
	// KindAuthFailed is HTTP 401, or invalid_grant/unauthorized; never
	// retried by the executor, but callers may force one token refresh and
	// retry the call themselves.
	KindAuthFailed
	// KindNetwork is a connect/reset/timeout failure or an upstream HTTP
	// 5xx; retried with backoff.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindAuthFailed:
		return "auth_failed"
	case KindNetwork:
		return "network"
	default:
		return "other"
	}
}

// Retryable reports whether the Retry Executor's loop should attempt another
// call for this kind of failure.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindNetwork
}

// ClassifiedError wraps an upstream error with its classification and, for
// rate-limited responses, a server-suggested retry delay.
type ClassifiedError struct {
	Kind       Kind
	RetryAfter string // raw Retry-After header value, if present
	Err        error
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// quotaExceededReasons are googleapi.ErrorItem.Reason values that indicate a
// hard daily/lifetime quota, as opposed to a transient per-second rate limit.
var quotaExceededReasons = map[string]bool{
	"dailyLimitExceeded":        true,
	"quotaExceeded":             true,
	"userRateLimitExceededUnreg": true,
}

// Classify inspects an error returned by an upstream call and assigns it a
// Kind per the policy table in the sync design: 429 or a rate-limit reason
// is rate-limited; 403 with a daily-limit reason is quota-exceeded; 401 or
// invalid_grant/unauthorized is auth-failed; connect/reset/timeout/context
// errors and upstream 5xx responses are network; everything else is other.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyGoogleAPIError(gerr)
	}

	if isNetworkError(err) {
		return &ClassifiedError{Kind: KindNetwork, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "unauthorized"):
		return &ClassifiedError{Kind: KindAuthFailed, Err: err}
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return &ClassifiedError{Kind: KindRateLimited, Err: err}
	}

	return &ClassifiedError{Kind: KindOther, Err: err}
}

func classifyGoogleAPIError(gerr *googleapi.Error) *ClassifiedError {
	switch gerr.Code {
	case 429:
		return &ClassifiedError{Kind: KindRateLimited, Err: gerr, RetryAfter: retryAfterHeader(gerr)}
	case 403:
		for _, item := range gerr.Errors {
			if quotaExceededReasons[item.Reason] {
				return &ClassifiedError{Kind: KindQuotaExceeded, Err: gerr}
			}
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return &ClassifiedError{Kind: KindRateLimited, Err: gerr, RetryAfter: retryAfterHeader(gerr)}
			}
		}
		return &ClassifiedError{Kind: KindOther, Err: gerr}
	case 401:
		return &ClassifiedError{Kind: KindAuthFailed, Err: gerr}
	case 410:
		// Callers (the Sync Engine) inspect the raw error for 410 themselves
		// to trigger cursor invalidation; it is otherwise non-recoverable.
		return &ClassifiedError{Kind: KindOther, Err: gerr}
	}
	if gerr.Code >= 500 {
		return &ClassifiedError{Kind: KindNetwork, Err: gerr}
	}
	return &ClassifiedError{Kind: KindOther, Err: gerr}
}

func retryAfterHeader(gerr *googleapi.Error) string {
	if gerr.Header == nil {
		return ""
	}
	return gerr.Header.Get("Retry-After")
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"connection reset", "connection refused", "broken pipe", "timeout", "no such host", "eof"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
