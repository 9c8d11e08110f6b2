package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestQueryValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{name: "blank title", req: Request{JobTitle: "   ", City: "Toronto"}, wantErr: "job_title is required"},
		{name: "no location", req: Request{JobTitle: "Engineer"}, wantErr: "city or country is required"},
		{name: "whitespace location", req: Request{JobTitle: "Engineer", City: " ", Country: "\t"}, wantErr: "city or country is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.req.Query(15)
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRequestQueryDefaults(t *testing.T) {
	t.Parallel()

	q, err := Request{JobTitle: " Data Analyst ", City: "Toronto", MaxAgeDays: -3}.Query(0)
	require.NoError(t, err)
	require.Equal(t, "Data Analyst", q.Title)
	require.Equal(t, DefaultMaxAgeDays, q.MaxAgeDays)
	require.Equal(t, "Toronto", q.Location())

	q, err = Request{JobTitle: "Nurse", Country: "Canada"}.Query(7)
	require.NoError(t, err)
	require.Equal(t, 7, q.MaxAgeDays)
	require.Equal(t, "Canada", q.Location())

	q, err = Request{JobTitle: "Nurse", City: "Ottawa", Country: "Canada", MaxAgeDays: 3}.Query(7)
	require.NoError(t, err)
	require.Equal(t, 3, q.MaxAgeDays)
	require.Equal(t, "Ottawa, Canada", q.Location())
}

func TestRequestQueryCapsAge(t *testing.T) {
	t.Parallel()

	q, err := Request{JobTitle: "Go", Country: "Canada", MaxAgeDays: 7e15}.Query(15)
	require.NoError(t, err)
	require.Equal(t, MaxAgeDaysLimit, q.MaxAgeDays)

	q, err = Request{JobTitle: "Go", Country: "Canada"}.Query(10_000)
	require.NoError(t, err)
	require.Equal(t, MaxAgeDaysLimit, q.MaxAgeDays)

	require.Equal(t, MaxAgeDaysLimit, Query{MaxAgeDays: 1 << 40}.ClampAge(0))
	require.Equal(t, 30, Query{MaxAgeDays: 1 << 40}.ClampAge(30))
}

func TestQueryClampAge(t *testing.T) {
	t.Parallel()

	q := Query{MaxAgeDays: 45}
	require.Equal(t, 30, q.ClampAge(30))
	require.Equal(t, 45, q.ClampAge(0))
	require.Equal(t, "Canada", Query{}.LocationOr("Canada"))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, FailureNone, Classify(nil))
	require.Equal(t, FailureTimeout, Classify(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	require.Equal(t, FailureTimeout, Classify(timeoutErr{}))
	require.Equal(t, FailureBlocked, Classify(fmt.Errorf("page: %w", ErrBlocked)))
	require.Equal(t, FailureUnreachable, Classify(errors.New("connection refused")))
}

func TestStatusFailure(t *testing.T) {
	t.Parallel()

	require.Equal(t, FailureNone, StatusFailure(200))
	for _, code := range []int{401, 403, 429, 503, 999} {
		require.Equal(t, FailureBlocked, StatusFailure(code), code)
	}
	require.Equal(t, FailureUnreachable, StatusFailure(500))
	require.Equal(t, FailureUnreachable, StatusFailure(404))
	require.True(t, FailureUnreachable.Retryable())
	require.False(t, FailureBlocked.Retryable())
	require.Equal(t, "ok", FailureNone.String())
}
