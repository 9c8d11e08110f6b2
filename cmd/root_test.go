package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/clock/system"
	"github.com/JakeFAU/jobsearch-aggregator/internal/engine"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

type fakeApp struct {
	req    jobs.Request
	ran    bool
	closed bool
	err    error
}

func (f *fakeApp) Run(context.Context) error {
	f.ran = true
	return nil
}

func (f *fakeApp) Search(_ context.Context, req jobs.Request) (engine.Report, error) {
	f.req = req
	if f.err != nil {
		return engine.Report{}, f.err
	}
	return engine.Report{
		SearchID: "id-1",
		Query:    jobs.Query{Title: req.JobTitle},
		Records: []jobs.Record{{
			PostingDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			SourceID:    "indeed",
			Kind:        jobs.KindListing,
			Company:     "Acme",
			Title:       req.JobTitle,
			Location:    "Toronto, Canada",
			URL:         "https://ca.indeed.com/viewjob?jk=1",
		}},
	}, nil
}

func (f *fakeApp) Clock() jobs.Clock {
	return system.NewFixed(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
}

func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

func (f *fakeApp) Close(context.Context) error {
	f.closed = true
	return nil
}

func withFakeApp(t *testing.T, fake *fakeApp) {
	t.Helper()
	orig := newApp
	newApp = func(context.Context, string) (App, error) { return fake, nil }
	t.Cleanup(func() { newApp = orig })
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchWritesCSVToStdout(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	out, err := execute("search", "--title", "Go Developer", "--city", "Toronto", "--country", "Canada", "--days", "7")
	require.NoError(t, err)
	require.Equal(t, jobs.Request{JobTitle: "Go Developer", City: "Toronto", Country: "Canada", MaxAgeDays: 7}, fake.req)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Date,Source,Type,Company,Job Title,Location,URL,Notes", lines[0])
	require.Equal(t, `2026-03-09,indeed,LISTING,Acme,Go Developer,"Toronto, Canada",https://ca.indeed.com/viewjob?jk=1,`, lines[1])
	require.True(t, fake.closed)
}

func TestSearchWritesFile(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	path := filepath.Join(t.TempDir(), "out.csv")
	_, err := execute("search", "--title", "Go Developer", "--out", path)
	require.NoError(t, err)
	// #nosec G304 -- test reads from the controlled temp directory.
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "indeed,LISTING,Acme")
}

func TestSearchPropagatesErrors(t *testing.T) {
	fake := &fakeApp{err: jobs.ErrInvalidRequest}
	withFakeApp(t, fake)

	_, err := execute("search")
	require.ErrorIs(t, err, jobs.ErrInvalidRequest)
}

func TestServeRunsApp(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	_, err := execute("serve")
	require.NoError(t, err)
	require.True(t, fake.ran)
	require.True(t, fake.closed)
}

func TestInitFailure(t *testing.T) {
	orig := newApp
	newApp = func(context.Context, string) (App, error) { return nil, errors.New("boom") }
	t.Cleanup(func() { newApp = orig })

	_, err := execute("serve")
	require.ErrorContains(t, err, "failed to initialize application services")
}
