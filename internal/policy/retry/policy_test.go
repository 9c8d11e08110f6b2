package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponential(0, 0)
	require.True(t, p.ShouldRetry(jobs.FailureUnreachable, 1, 3))
	require.False(t, p.ShouldRetry(jobs.FailureUnreachable, 3, 3))
	require.False(t, p.ShouldRetry(jobs.FailureBlocked, 1, 3))
	require.False(t, p.ShouldRetry(jobs.FailureLayoutMismatch, 1, 3))
	require.False(t, p.ShouldRetry(jobs.FailureNone, 1, 3))
}

func TestBackoffBounds(t *testing.T) {
	t.Parallel()

	p := NewExponential(100*time.Millisecond, 400*time.Millisecond)
	for i := 0; i < 20; i++ {
		first := p.Backoff(1)
		require.GreaterOrEqual(t, first, 50*time.Millisecond)
		require.Less(t, first, 100*time.Millisecond)

		capped := p.Backoff(10)
		require.GreaterOrEqual(t, capped, 200*time.Millisecond)
		require.Less(t, capped, 400*time.Millisecond)
	}
}
