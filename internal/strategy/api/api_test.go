package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

var query = jobs.Query{Title: "Go Developer", City: "Toronto", Country: "Canada", MaxAgeDays: 45}

func newStrategy(t *testing.T, schema string, handler http.HandlerFunc, creds map[string]string) *Strategy {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := New(Config{Schema: schema, BaseURL: srv.URL, Credentials: creds, Timeout: time.Second})
	require.NoError(t, err)
	return s
}

func TestAdzunaRequestAndDecode(t *testing.T) {
	t.Parallel()

	s := newStrategy(t, Adzuna, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ca/search/1", r.URL.Path)
		require.Equal(t, "id", r.URL.Query().Get("app_id"))
		require.Equal(t, "key", r.URL.Query().Get("app_key"))
		require.Equal(t, "Go Developer", r.URL.Query().Get("what"))
		require.Equal(t, "Toronto", r.URL.Query().Get("where"))
		require.Equal(t, "45", r.URL.Query().Get("max_days_old"))
		_, _ = w.Write([]byte(`{"count":2,"results":[
			{"title":"Go Dev","company":{"display_name":"Acme"},"location":{"display_name":"Toronto, ON"},"redirect_url":"https://adzuna.ca/1","created":"2026-01-02T03:04:05Z","salary_min":100000},
			{"title":"SRE","redirect_url":"https://adzuna.ca/2"}
		]}`))
	}, map[string]string{"adzuna_app_id": "id", "adzuna_app_key": "key"})

	res := s.Attempt(context.Background(), query)
	require.True(t, res.OK(), res.Cause)
	require.Len(t, res.Items, 2)
	require.Equal(t, "Go Dev", res.Items[0]["title"])
	require.Equal(t, "https://adzuna.ca/1", res.Items[0]["redirect_url"])
}

func TestJSearchClampsAgeAndAdaptsLocation(t *testing.T) {
	t.Parallel()

	s := newStrategy(t, JSearch, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		require.Equal(t, "month", r.URL.Query().Get("date_posted"))
		require.Equal(t, "Go Developer in Toronto, Canada", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"status":"OK","data":[{"job_title":"Go Dev","employer_name":"Initech","job_city":"Toronto","job_state":"ON","job_country":"CA","job_apply_link":"https://x/apply","job_is_remote":true}]}`))
	}, map[string]string{"rapidapi_key": "secret"})

	res := s.Attempt(context.Background(), query)
	require.True(t, res.OK(), res.Cause)
	require.Len(t, res.Items, 1)
	require.Equal(t, "Toronto, ON, CA", res.Items[0][jobs.FieldLocation])
}

func TestStatusClassification(t *testing.T) {
	t.Parallel()

	cases := map[int]jobs.Failure{
		http.StatusUnauthorized:        jobs.FailureBlocked,
		http.StatusForbidden:           jobs.FailureBlocked,
		http.StatusTooManyRequests:     jobs.FailureBlocked,
		http.StatusInternalServerError: jobs.FailureUnreachable,
		http.StatusNotFound:            jobs.FailureUnreachable,
	}
	for code, want := range cases {
		s := newStrategy(t, Remotive, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}, nil)
		res := s.Attempt(context.Background(), query)
		require.Equal(t, want, res.Failure, code)
		require.Empty(t, res.Items)
	}
}

func TestMalformedPayload(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`not json`, `{"other":[]}`, `{"jobs":{"a":1}}`} {
		s := newStrategy(t, Remotive, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}, nil)
		res := s.Attempt(context.Background(), query)
		require.Equal(t, jobs.FailureMalformedPayload, res.Failure, body)
	}
}

func TestTimeoutClassification(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	s, err := New(Config{Schema: Remotive, BaseURL: srv.URL, Timeout: 30 * time.Millisecond})
	require.NoError(t, err)

	res := s.Attempt(context.Background(), query)
	require.Equal(t, jobs.FailureTimeout, res.Failure)
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Schema: Adzuna, Credentials: map[string]string{"adzuna_app_id": "id"}})
	require.ErrorIs(t, err, ErrMissingCredentials)
	_, err = New(Config{Schema: "unknown"})
	require.Error(t, err)
}

func TestTransportErrorsAreRedacted(t *testing.T) {
	t.Parallel()

	s, err := New(Config{
		Schema:      Adzuna,
		BaseURL:     "http://127.0.0.1:1",
		Credentials: map[string]string{"adzuna_app_id": "id", "adzuna_app_key": "topsecret"},
	})
	require.NoError(t, err)
	res := s.Attempt(context.Background(), query)
	require.Equal(t, jobs.FailureUnreachable, res.Failure)
	require.NotContains(t, res.Cause.Error(), "topsecret")
}

func TestSiteURLs(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Schema: Adzuna, Credentials: map[string]string{"adzuna_app_id": "a", "adzuna_app_key": "b"}})
	require.NoError(t, err)
	require.Equal(t, "https://www.adzuna.ca", s.BaseURL(query))
	require.Contains(t, s.SearchURL(jobs.Query{Title: "Go", Country: "UK"}), "https://www.adzuna.co.uk/search?")

	r, err := New(Config{Schema: Remotive})
	require.NoError(t, err)
	require.Equal(t, "https://remotive.com/remote-jobs?search=Go+Developer", r.SearchURL(query))
}
