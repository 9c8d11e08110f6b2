// Package normalize maps technique-specific raw items onto jobs.Record.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Source describes where raw items came from.
type Source struct {
	// ID becomes Record.SourceID.
	ID string
	// BaseURL resolves relative links.
	BaseURL string
	// SearchURL substitutes for missing or unusable links.
	SearchURL string
}

// Alias lists, checked in order. The first non-empty value wins.
var (
	titleKeys    = []string{jobs.FieldTitle, "job_title", "jobTitle", "position", "name"}
	companyKeys  = []string{jobs.FieldCompany, "company_name", "companyName", "employer_name", "employer", "hiringOrganization"}
	locationKeys = []string{jobs.FieldLocation, "candidate_required_location", "job_location", "job_city", "jobLocation", "area"}
	urlKeys      = []string{jobs.FieldURL, "link", "href", "redirect_url", "job_apply_link", "job_url", "applyUrl"}
	dateKeys     = []string{jobs.FieldDate, "created", "publication_date", "date_posted", "datePosted", "job_posted_at_datetime_utc", "job_posted_at_timestamp", "posted", "postedAt"}
	salaryKeys   = []string{jobs.FieldSalary, "salary_range", "compensation", "pay"}
	remoteKeys   = []string{"remote", "job_is_remote", "is_remote"}
)

// Normalizer converts raw items to records. It never fails.
type Normalizer struct {
	clock jobs.Clock
}

// New builds a Normalizer using the supplied clock for "today".
func New(clock jobs.Clock) *Normalizer {
	return &Normalizer{clock: clock}
}

func (n *Normalizer) today() time.Time {
	now := time.Now()
	if n != nil && n.clock != nil {
		now = n.clock.Now()
	}
	return truncateDay(now)
}

// Normalize maps items to records in order.
func (n *Normalizer) Normalize(src Source, q jobs.Query, items []jobs.RawItem) []jobs.Record {
	out := make([]jobs.Record, 0, len(items))
	for _, item := range items {
		out = append(out, n.Record(src, q, item))
	}
	return out
}

// Record maps one raw item, substituting sentinels for missing fields.
func (n *Normalizer) Record(src Source, q jobs.Query, item jobs.RawItem) jobs.Record {
	today := n.today()
	kind := jobs.KindListing
	if strings.EqualFold(Text(item[jobs.FieldKind]), string(jobs.KindSearchLink)) {
		kind = jobs.KindSearchLink
	}

	rec := jobs.Record{
		PostingDate: ParseDate(first(item, dateKeys), today),
		SourceID:    src.ID,
		Kind:        kind,
		Company:     orDefault(Text(first(item, companyKeys)), jobs.UnknownCompany),
		Title:       orDefault(Text(first(item, titleKeys)), q.Title),
		Location:    orDefault(Text(first(item, locationKeys)), q.Location()),
		URL:         ResolveURL(Text(first(item, urlKeys)), src),
	}
	if kind == jobs.KindSearchLink {
		rec.Company = jobs.UnknownCompany
		rec.Title = q.Title
		rec.Notes = orDefault(Text(item[jobs.FieldNotes]), SearchLinkNotes(q.ClampAge(0)))
		return rec
	}
	rec.Notes = listingNotes(item)
	return rec
}

// SearchLinkNotes describes the recency window of a search link.
func SearchLinkNotes(days int) string {
	return fmt.Sprintf("Search results (past %d days)", days)
}

func listingNotes(item jobs.RawItem) string {
	var parts []string
	if salary := Text(first(item, salaryKeys)); salary != "" {
		parts = append(parts, "Salary: "+salary)
	} else if s := salaryRange(item); s != "" {
		parts = append(parts, "Salary: "+s)
	}
	if remote(first(item, remoteKeys)) {
		parts = append(parts, "Remote")
	}
	if notes := Text(item[jobs.FieldNotes]); notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, "; ")
}

func salaryRange(item jobs.RawItem) string {
	lo, hi := Text(item["salary_min"]), Text(item["salary_max"])
	switch {
	case lo != "" && hi != "" && lo != hi:
		return lo + " - " + hi
	case lo != "":
		return lo
	default:
		return hi
	}
}

func remote(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func first(item jobs.RawItem, keys []string) any {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Text renders a raw value as NFKC-normalized, whitespace-collapsed text.
func Text(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			s = strconv.FormatInt(int64(t), 10)
		} else {
			s = strconv.FormatFloat(t, 'f', -1, 64)
		}
	case fmt.Stringer:
		s = t.String()
	case map[string]any:
		for _, k := range []string{"display_name", "name", "label"} {
			if inner := Text(t[k]); inner != "" {
				return inner
			}
		}
		return ""
	default:
		s = fmt.Sprint(t)
	}
	return Clean(s)
}

// Clean applies NFKC normalization and collapses runs of whitespace.
func Clean(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// ResolveURL resolves raw against the source base URL, falling back to the
// source search URL when raw is missing or cannot produce an absolute link.
func ResolveURL(raw string, src Source) string {
	fallback := src.SearchURL
	if fallback == "" {
		fallback = src.BaseURL
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	if !ref.IsAbs() {
		base, err := url.Parse(src.BaseURL)
		if err != nil || !base.IsAbs() {
			return fallback
		}
		ref = base.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return fallback
	}
	return ref.String()
}
