package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []jobs.Record{
		{PostingDate: day, SourceID: "remotive", Kind: jobs.KindListing, Company: "Acme, Inc.",
			Title: "Go Developer", Location: "Remote", URL: "https://remotive.com/1", Notes: "Salary: $120k; Remote"},
		{PostingDate: day, SourceID: "linkedin", Kind: jobs.KindSearchLink, Company: jobs.UnknownCompany,
			Title: "Go Developer", Location: "Toronto, Canada", URL: "https://www.linkedin.com/jobs/search/?keywords=Go%20Developer",
			Notes: "Search results (past 15 days)"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, Header, rows[0])
	require.Equal(t, []string{"2026-03-10", "remotive", "LISTING", "Acme, Inc.", "Go Developer", "Remote",
		"https://remotive.com/1", "Salary: $120k; Remote"}, rows[1])
	require.Equal(t, "SEARCH_LINK", rows[2][2])
	require.Equal(t, "N/A", rows[2][3])
}

func TestTypeLabelUsesRecordKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, "LISTING", TypeLabel(jobs.KindListing))
	require.Equal(t, "SEARCH_LINK", TypeLabel(jobs.KindSearchLink))
	require.Equal(t, "LISTING", TypeLabel(""))
}

func TestWriteCSVEmptyStillHasHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	require.Equal(t, "Date,Source,Type,Company,Job Title,Location,URL,Notes\n", buf.String())
}

func TestFilename(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "jobs_Business_Analyst_2026-03-10.csv", Filename("Business Analyst", day))
	require.Equal(t, "jobs_QA_Lead_2026-03-10.csv", Filename(`  QA "Lead" `, day))
	require.Equal(t, "jobs_CI_CD_2026-03-10.csv", Filename("CI/ CD", day))
	require.Equal(t, "jobs_search_2026-03-10.csv", Filename("", day))
}
