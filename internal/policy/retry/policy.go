// Package retry decides whether and when a failed strategy attempt is retried.
package retry

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// ExponentialPolicy retries retryable failures with jittered backoff.
type ExponentialPolicy struct {
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewExponential builds a policy; non-positive delays fall back to defaults.
func NewExponential(base, maxDelay time.Duration) *ExponentialPolicy {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &ExponentialPolicy{baseDelay: base, maxDelay: maxDelay}
}

// ShouldRetry reports whether another attempt is allowed after attempt
// (1-based) ended with f.
func (p *ExponentialPolicy) ShouldRetry(f jobs.Failure, attempt, maxAttempts int) bool {
	return f.Retryable() && attempt < maxAttempts
}

// Backoff returns the wait before the attempt following attempt (1-based).
func (p *ExponentialPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
