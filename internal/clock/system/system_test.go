package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

var (
	_ jobs.Clock = (*Clock)(nil)
	_ jobs.Clock = (*Fixed)(nil)
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	require.Equal(t, time.UTC, got.Location())
	require.WithinDuration(t, before.Add(time.Second), got, 2*time.Second)
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	clk := NewFixed(time.Date(2026, 3, 9, 22, 0, 0, 0, loc))
	require.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), clk.Now())

	clk.Set(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, 4, int(clk.Now().Month()))
}
