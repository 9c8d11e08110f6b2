package jobs

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// Failure classifies why a strategy produced no usable items.
type Failure string

// Failure signals reported by strategies.
const (
	FailureNone             Failure = ""
	FailureTimeout          Failure = "timeout"
	FailureUnreachable      Failure = "unreachable"
	FailureBlocked          Failure = "blocked"
	FailureLayoutMismatch   Failure = "layout_mismatch"
	FailureRenderTimeout    Failure = "render_timeout"
	FailureMalformedPayload Failure = "malformed_payload"
	FailurePanic            Failure = "panic"
)

// Retryable reports whether the engine may re-attempt the strategy within its budget.
func (f Failure) Retryable() bool {
	return f == FailureUnreachable
}

// String returns the outcome label, "ok" for FailureNone.
func (f Failure) String() string {
	if f == FailureNone {
		return "ok"
	}
	return string(f)
}

// Failed builds a Result carrying only a failure signal.
func Failed(f Failure, cause error) Result {
	return Result{Failure: f, Cause: cause}
}

// ErrBlocked marks responses recognised as anti-automation challenges.
var ErrBlocked = errors.New("blocked by source")

// BlockedStatus reports whether an HTTP status denotes refusal by the source.
func BlockedStatus(code int) bool {
	switch code {
	case 401, 403, 429, 503, 999:
		return true
	default:
		return false
	}
}

// StatusFailure maps a non-2xx HTTP status to a failure signal.
func StatusFailure(code int) Failure {
	if code >= 200 && code < 300 {
		return FailureNone
	}
	if BlockedStatus(code) {
		return FailureBlocked
	}
	return FailureUnreachable
}

// Classify maps a transport error to a failure signal.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}
	switch {
	case errors.Is(err, ErrBlocked):
		return FailureBlocked
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return FailureTimeout
	}
	return FailureUnreachable
}
