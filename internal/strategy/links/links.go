// Package links builds portal search URLs. It performs no I/O and is the
// engine's guaranteed non-empty fallback.
package links

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/normalize"
)

// Portal identifiers understood by BuildURL.
const (
	LinkedIn   = "linkedin"
	Indeed     = "indeed"
	Glassdoor  = "glassdoor"
	GoogleJobs = "google_jobs"
)

// DefaultPortals is the fallback portal order.
var DefaultPortals = []string{LinkedIn, Indeed, Glassdoor, GoogleJobs}

type param struct{ key, value string }

// encode renders ordered query parameters with spaces as %20.
func encode(params []param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		v := strings.ReplaceAll(url.QueryEscape(p.value), "+", "%20")
		parts = append(parts, url.QueryEscape(p.key)+"="+v)
	}
	return strings.Join(parts, "&")
}

var indeedHosts = map[string]string{
	"canada":         "ca.indeed.com",
	"ca":             "ca.indeed.com",
	"united states":  "www.indeed.com",
	"usa":            "www.indeed.com",
	"us":             "www.indeed.com",
	"united kingdom": "uk.indeed.com",
	"uk":             "uk.indeed.com",
	"india":          "in.indeed.com",
	"australia":      "au.indeed.com",
	"germany":        "de.indeed.com",
}

var glassdoorHosts = map[string]string{
	"canada":         "www.glassdoor.ca",
	"ca":             "www.glassdoor.ca",
	"united states":  "www.glassdoor.com",
	"usa":            "www.glassdoor.com",
	"us":             "www.glassdoor.com",
	"united kingdom": "www.glassdoor.co.uk",
	"uk":             "www.glassdoor.co.uk",
	"india":          "www.glassdoor.co.in",
	"australia":      "www.glassdoor.com.au",
	"germany":        "www.glassdoor.de",
}

func hostFor(hosts map[string]string, country, fallback string) string {
	if h, ok := hosts[strings.ToLower(strings.TrimSpace(country))]; ok {
		return h
	}
	return fallback
}

// IndeedHost returns the Indeed host for a country, defaulting to Canada.
func IndeedHost(country string) string {
	return hostFor(indeedHosts, country, "ca.indeed.com")
}

// GlassdoorHost returns the Glassdoor host for a country, defaulting to Canada.
func GlassdoorHost(country string) string {
	return hostFor(glassdoorHosts, country, "www.glassdoor.ca")
}

// Supported reports whether BuildURL knows the portal.
func Supported(portal string) bool {
	switch portal {
	case LinkedIn, Indeed, Glassdoor, GoogleJobs:
		return true
	default:
		return false
	}
}

// BuildURL renders the portal's search URL for q.
func BuildURL(portal string, q jobs.Query) (string, error) {
	loc := q.Location()
	days := q.ClampAge(0)
	switch portal {
	case LinkedIn:
		return "https://www.linkedin.com/jobs/search/?" + encode([]param{
			{"keywords", q.Title},
			{"location", loc},
			{"f_TPR", "r" + strconv.Itoa(days*24*60)},
		}), nil
	case Indeed:
		return "https://" + IndeedHost(q.Country) + "/jobs?" + encode([]param{
			{"q", q.Title},
			{"l", loc},
			{"fromage", strconv.Itoa(days)},
		}), nil
	case Glassdoor:
		return "https://" + GlassdoorHost(q.Country) + "/Job/jobs.htm?" + encode([]param{
			{"sc.keyword", q.Title},
			{"locT", "C"},
			{"locId", ""},
			{"locKeyword", loc},
			{"fromAge", strconv.Itoa(days)},
		}), nil
	case GoogleJobs:
		return "https://www.google.com/search?" + encode([]param{
			{"q", fmt.Sprintf("%s jobs in %s", q.Title, loc)},
			{"ibp", "htl;jobs"},
			{"tbs", "qdr:d" + strconv.Itoa(days)},
		}), nil
	default:
		return "", fmt.Errorf("unknown link portal %q", portal)
	}
}

// Fallback produces one SEARCH_LINK record per configured portal.
type Fallback struct {
	portals []string
	clock   jobs.Clock
}

// NewFallback validates the portal list. An empty list selects DefaultPortals.
func NewFallback(portals []string, clock jobs.Clock) (*Fallback, error) {
	if len(portals) == 0 {
		portals = DefaultPortals
	}
	for _, p := range portals {
		if !Supported(p) {
			return nil, fmt.Errorf("unknown link portal %q", p)
		}
	}
	return &Fallback{portals: append([]string(nil), portals...), clock: clock}, nil
}

// Portals returns the configured portal order.
func (f *Fallback) Portals() []string {
	return append([]string(nil), f.portals...)
}

// Records builds the fallback record set for q. It is deterministic for a
// given query and date.
func (f *Fallback) Records(q jobs.Query) []jobs.Record {
	now := time.Now()
	if f.clock != nil {
		now = f.clock.Now()
	}
	today := normalize.Day(now)
	out := make([]jobs.Record, 0, len(f.portals))
	for _, p := range f.portals {
		// Portals are validated at construction.
		link, _ := BuildURL(p, q)
		out = append(out, jobs.Record{
			PostingDate: today,
			SourceID:    p,
			Kind:        jobs.KindSearchLink,
			Company:     jobs.UnknownCompany,
			Title:       q.Title,
			Location:    q.Location(),
			URL:         link,
			Notes:       normalize.SearchLinkNotes(q.ClampAge(0)),
		})
	}
	return out
}

// Strategy exposes a single portal's search link as a registered strategy.
type Strategy struct {
	Portal string
}

// Attempt returns one search_link raw item.
func (s Strategy) Attempt(_ context.Context, q jobs.Query) jobs.Result {
	link, err := BuildURL(s.Portal, q)
	if err != nil {
		return jobs.Failed(jobs.FailureMalformedPayload, err)
	}
	return jobs.Result{Items: []jobs.RawItem{{
		jobs.FieldKind: "search_link",
		jobs.FieldURL:  link,
	}}}
}
