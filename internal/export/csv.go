// Package export renders search results as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Header is the fixed CSV column order.
var Header = []string{"Date", "Source", "Type", "Company", "Job Title", "Location", "URL", "Notes"}

// DateLayout formats the Date column and the filename date.
const DateLayout = "2006-01-02"

// ContentType is the MIME type of the rendered document.
const ContentType = "text/csv; charset=utf-8"

// TypeLabel maps a record kind to the Type column value. Unknown kinds are
// written as LISTING.
func TypeLabel(k jobs.RecordKind) string {
	if k == jobs.KindSearchLink {
		return string(jobs.KindSearchLink)
	}
	return string(jobs.KindListing)
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []jobs.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{
			r.PostingDate.UTC().Format(DateLayout),
			r.SourceID,
			TypeLabel(r.Kind),
			r.Company,
			r.Title,
			r.Location,
			r.URL,
			r.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Filename returns jobs_<Title_With_Underscores>_<YYYY-MM-DD>.csv. Characters
// that would break a Content-Disposition header or a path are dropped.
func Filename(title string, day time.Time) string {
	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(title), "_") {
		switch {
		case r == '"', r == '\\', r == '/', r == ';', r < 0x20, r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "search"
	}
	return fmt.Sprintf("jobs_%s_%s.csv", name, day.UTC().Format(DateLayout))
}
