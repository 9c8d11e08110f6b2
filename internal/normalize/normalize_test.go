package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

var (
	testNow   = time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	testToday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	testSrc   = Source{ID: "indeed", BaseURL: "https://ca.indeed.com", SearchURL: "https://ca.indeed.com/jobs?q=go"}
	testQuery = jobs.Query{Title: "Go Developer", City: "Toronto", Country: "Canada", MaxAgeDays: 10}
)

func TestRecordAppliesSentinels(t *testing.T) {
	t.Parallel()

	n := New(fixedClock{now: testNow})
	rec := n.Record(testSrc, testQuery, jobs.RawItem{})

	require.Equal(t, testToday, rec.PostingDate)
	require.Equal(t, "indeed", rec.SourceID)
	require.Equal(t, jobs.KindListing, rec.Kind)
	require.Equal(t, jobs.UnknownCompany, rec.Company)
	require.Equal(t, "Go Developer", rec.Title)
	require.Equal(t, "Toronto, Canada", rec.Location)
	require.Equal(t, testSrc.SearchURL, rec.URL)
	require.Empty(t, rec.Notes)
}

func TestRecordMapsAliases(t *testing.T) {
	t.Parallel()

	n := New(fixedClock{now: testNow})
	rec := n.Record(testSrc, testQuery, jobs.RawItem{
		"job_title":        "  Senior Go   Engineer ",
		"employer_name":    "Acme",
		"job_city":         "Ottawa",
		"href":             "/viewjob?jk=123",
		"publication_date": "2026-03-01T10:00:00Z",
		"salary":           "$120k",
		"job_is_remote":    true,
	})

	require.Equal(t, "Senior Go Engineer", rec.Title)
	require.Equal(t, "Acme", rec.Company)
	require.Equal(t, "Ottawa", rec.Location)
	require.Equal(t, "https://ca.indeed.com/viewjob?jk=123", rec.URL)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), rec.PostingDate)
	require.Equal(t, "Salary: $120k; Remote", rec.Notes)
}

func TestRecordNestedDisplayName(t *testing.T) {
	t.Parallel()

	n := New(fixedClock{now: testNow})
	rec := n.Record(testSrc, testQuery, jobs.RawItem{
		"company":    map[string]any{"display_name": "Initech"},
		"location":   map[string]any{"display_name": "Vancouver, BC"},
		"salary_min": 90000.0,
		"salary_max": 110000.0,
	})
	require.Equal(t, "Initech", rec.Company)
	require.Equal(t, "Vancouver, BC", rec.Location)
	require.Equal(t, "Salary: 90000 - 110000", rec.Notes)
}

func TestRecordSearchLinkNeverFabricates(t *testing.T) {
	t.Parallel()

	n := New(fixedClock{now: testNow})
	rec := n.Record(testSrc, testQuery, jobs.RawItem{
		jobs.FieldKind:    "search_link",
		jobs.FieldCompany: "Someone",
		jobs.FieldTitle:   "Other",
		jobs.FieldURL:     "https://ca.indeed.com/jobs?q=Go%20Developer",
	})
	require.Equal(t, jobs.KindSearchLink, rec.Kind)
	require.Equal(t, jobs.UnknownCompany, rec.Company)
	require.Equal(t, "Go Developer", rec.Title)
	require.Equal(t, "Search results (past 10 days)", rec.Notes)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   any
		want time.Time
	}{
		{name: "nil", in: nil, want: testToday},
		{name: "garbage", in: "sometime soon-ish", want: testToday},
		{name: "today", in: "Posted Today", want: testToday},
		{name: "just posted", in: "Just posted", want: testToday},
		{name: "yesterday", in: "yesterday", want: testToday.AddDate(0, 0, -1)},
		{name: "days ago", in: "Posted 3 days ago", want: testToday.AddDate(0, 0, -3)},
		{name: "thirty plus", in: "30+ days ago", want: testToday.AddDate(0, 0, -30)},
		{name: "weeks ago", in: "2 weeks ago", want: testToday.AddDate(0, 0, -14)},
		{name: "hours ago", in: "5 hours ago", want: testToday},
		{name: "iso date", in: "2026-02-14", want: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", in: "2026-02-14T23:30:00Z", want: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
		{name: "unix seconds", in: float64(1767225600), want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "unix millis string", in: "1767225600000", want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "json number", in: json.Number("1767225600"), want: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ParseDate(tc.in, testToday))
		})
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://ca.indeed.com/rc/clk?jk=1", ResolveURL("/rc/clk?jk=1", testSrc))
	require.Equal(t, "https://example.com/job", ResolveURL("https://example.com/job", testSrc))
	require.Equal(t, testSrc.SearchURL, ResolveURL("", testSrc))
	require.Equal(t, testSrc.SearchURL, ResolveURL("javascript:void(0)", testSrc))
	require.Equal(t, "https://ca.indeed.com", ResolveURL("", Source{BaseURL: "https://ca.indeed.com"}))
}

func TestClean(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ABC Corp", Clean("ＡＢＣ  Corp\n"))
	require.Equal(t, "", Clean("   "))
}
