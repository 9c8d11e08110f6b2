package static

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/jobsearch-aggregator/internal/extract"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/links"
)

// Profile describes one static listing page layout.
type Profile struct {
	Name       string
	MaxAgeDays int
	// BaseURL resolves relative links; it may depend on the query country.
	BaseURL   func(q jobs.Query) string
	SearchURL func(base string, q jobs.Query) string
	Headers   map[string][]string
	Cascade   extract.Profile
}

// Built-in profile names.
const (
	Indeed   = "indeed"
	LinkedIn = "linkedin"
)

var browserHeaders = map[string][]string{
	"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": {"en-US,en;q=0.9"},
}

var profiles = map[string]Profile{
	Indeed: {
		Name:       Indeed,
		MaxAgeDays: 30,
		BaseURL: func(q jobs.Query) string {
			return "https://" + links.IndeedHost(q.Country)
		},
		SearchURL: func(base string, q jobs.Query) string {
			v := url.Values{}
			v.Set("q", q.Title)
			v.Set("l", q.Location())
			v.Set("fromage", strconv.Itoa(q.MaxAgeDays))
			return strings.TrimRight(base, "/") + "/jobs?" + v.Encode()
		},
		Headers: browserHeaders,
		Cascade: extract.Profile{
			Containers: []string{
				"div.job_seen_beacon",
				"td.resultContent",
				"a.tapItem",
				"div.jobsearch-SerpJobCard",
				"div.cardOutline",
			},
			Fields: []extract.Field{
				{Name: jobs.FieldTitle, Selectors: []string{"h2.jobTitle span[title]", "h2.jobTitle", "a.jcs-JobTitle span", ".jobTitle"}},
				{Name: jobs.FieldCompany, Selectors: []string{"span[data-testid='company-name']", "span.companyName", ".company"}},
				{Name: jobs.FieldLocation, Selectors: []string{"div[data-testid='text-location']", "div.companyLocation", ".location"}},
				{Name: jobs.FieldURL, Selectors: []string{"h2.jobTitle a", "a.jcs-JobTitle", "a", ""}, Attr: "href"},
				{Name: jobs.FieldDate, Selectors: []string{"span[data-testid='myJobsStateDate']", "span.date", ".date"}},
				{Name: jobs.FieldSalary, Selectors: []string{"div.salary-snippet-container", ".salaryOnly", ".salary-snippet", "div[data-testid='attribute_snippet_testid']"}},
			},
		},
	},
	LinkedIn: {
		Name:       LinkedIn,
		MaxAgeDays: 30,
		BaseURL: func(jobs.Query) string {
			return "https://www.linkedin.com"
		},
		SearchURL: func(base string, q jobs.Query) string {
			v := url.Values{}
			v.Set("keywords", q.Title)
			v.Set("location", q.Location())
			// The guest endpoint takes the window in seconds.
			v.Set("f_TPR", "r"+strconv.Itoa(q.MaxAgeDays*24*60*60))
			v.Set("start", "0")
			return strings.TrimRight(base, "/") + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + v.Encode()
		},
		Headers: browserHeaders,
		Cascade: extract.Profile{
			Containers: []string{
				"div.base-card",
				"div.base-search-card",
				"div.job-search-card",
				"li",
			},
			Fields: []extract.Field{
				{Name: jobs.FieldTitle, Selectors: []string{"h3.base-search-card__title", "h3"}},
				{Name: jobs.FieldCompany, Selectors: []string{"h4.base-search-card__subtitle a", "h4.base-search-card__subtitle", "h4"}},
				{Name: jobs.FieldLocation, Selectors: []string{"span.job-search-card__location"}},
				{Name: jobs.FieldURL, Selectors: []string{"a.base-card__full-link", "a"}, Attr: "href"},
				{Name: jobs.FieldDate, Selectors: []string{"time"}, Attr: "datetime"},
				{Name: jobs.FieldDate, Selectors: []string{"time", ".job-search-card__listdate"}},
				{Name: jobs.FieldSalary, Selectors: []string{"span.job-search-card__salary-info"}},
			},
		},
	},
}

// Lookup returns the named built-in profile.
func Lookup(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(name)]
	return p, ok
}
