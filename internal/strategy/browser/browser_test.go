package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsearch-aggregator/internal/fetcher/headless"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

var query = jobs.Query{Title: "Nurse", City: "Calgary", Country: "Canada", MaxAgeDays: 5}

type stubRenderer struct {
	resp jobs.FetchResponse
	err  error
	got  headless.RenderRequest
}

func (s *stubRenderer) Render(_ context.Context, req headless.RenderRequest) (jobs.FetchResponse, error) {
	s.got = req
	return s.resp, s.err
}

func glassdoorPage(n int) []byte {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<li data-test="jobListing">
			<a data-test="job-title" href="/job-listing/nurse-%d">RN %d</a>
			<span data-test="employer-name">Hospital %d</span>
			<div data-test="emp-location">Calgary, AB</div>
			<div data-test="job-age">%dd</div>
		</li>`, i, i, i, i+1)
	}
	b.WriteString("</ul></body></html>")
	return []byte(b.String())
}

func newGlassdoor(t *testing.T, r headless.Renderer) *Strategy {
	t.Helper()
	s, err := New(Config{Profile: Glassdoor, Renderer: r, ScrollSteps: 2})
	require.NoError(t, err)
	return s
}

func TestGlassdoorRendersAndExtracts(t *testing.T) {
	t.Parallel()

	r := &stubRenderer{resp: jobs.FetchResponse{StatusCode: 200, Body: glassdoorPage(6)}}
	s := newGlassdoor(t, r)

	res := s.Attempt(context.Background(), query)
	require.True(t, res.OK(), res.Cause)
	require.Len(t, res.Items, 6)
	require.Equal(t, "RN 1", res.Items[1][jobs.FieldTitle])
	require.Equal(t, "Hospital 1", res.Items[1][jobs.FieldCompany])
	require.Equal(t, "/job-listing/nurse-1", res.Items[1][jobs.FieldURL])

	require.Equal(t, 2, r.got.ScrollSteps)
	require.NotEmpty(t, r.got.WaitSelector)
	u, err := url.Parse(r.got.URL)
	require.NoError(t, err)
	require.Equal(t, "www.glassdoor.ca", u.Host)
	require.Equal(t, "https://www.glassdoor.ca", s.BaseURL(query))
}

func TestRenderFailuresClassified(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want jobs.Failure
	}{
		{err: fmt.Errorf("wait: %w", headless.ErrRenderTimeout), want: jobs.FailureRenderTimeout},
		{err: fmt.Errorf("render canceled: %w", context.DeadlineExceeded), want: jobs.FailureRenderTimeout},
		{err: headless.ErrUnavailable, want: jobs.FailureUnreachable},
		{err: errors.New("chrome crashed"), want: jobs.FailureUnreachable},
	}
	for _, tc := range cases {
		res := newGlassdoor(t, &stubRenderer{err: tc.err}).Attempt(context.Background(), query)
		require.Equal(t, tc.want, res.Failure, tc.err.Error())
		require.Empty(t, res.Items)
	}
}

func TestChallengeAndLayoutMismatch(t *testing.T) {
	t.Parallel()

	r := &stubRenderer{resp: jobs.FetchResponse{StatusCode: 200, Body: []byte(`<div id="px-captcha"></div>`)}}
	require.Equal(t, jobs.FailureBlocked, newGlassdoor(t, r).Attempt(context.Background(), query).Failure)

	r = &stubRenderer{resp: jobs.FetchResponse{StatusCode: 200, Body: glassdoorPage(2)}}
	require.Equal(t, jobs.FailureLayoutMismatch, newGlassdoor(t, r).Attempt(context.Background(), query).Failure)

	r = &stubRenderer{resp: jobs.FetchResponse{StatusCode: 403}}
	require.Equal(t, jobs.FailureBlocked, newGlassdoor(t, r).Attempt(context.Background(), query).Failure)
}

func TestGoogleJobsSearchURL(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Profile: GoogleJobs, Renderer: headless.NewNoop()})
	require.NoError(t, err)
	u, err := url.Parse(s.SearchURL(query))
	require.NoError(t, err)
	require.Equal(t, "htl;jobs", u.Query().Get("ibp"))
	require.Equal(t, "qdr:d5", u.Query().Get("tbs"))

	res := s.Attempt(context.Background(), query)
	require.Equal(t, jobs.FailureUnreachable, res.Failure)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Profile: "nope", Renderer: headless.NewNoop()})
	require.Error(t, err)
	_, err = New(Config{Profile: Glassdoor})
	require.Error(t, err)
	_, err = New(Config{Profile: Glassdoor, Renderer: headless.NewNoop(), ScrollSteps: -1})
	require.Error(t, err)
}
