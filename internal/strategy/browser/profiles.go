package browser

import (
	"strings"

	"github.com/JakeFAU/jobsearch-aggregator/internal/extract"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/links"
)

// Profile describes one client-rendered listing page.
type Profile struct {
	Name         string
	BaseURL      func(q jobs.Query) string
	SearchURL    func(q jobs.Query) string
	WaitSelector string
	Cascade      extract.Profile
}

// Built-in profile names.
const (
	Glassdoor  = "glassdoor"
	GoogleJobs = "google_jobs"
)

func linkURL(portal string) func(jobs.Query) string {
	return func(q jobs.Query) string {
		u, _ := links.BuildURL(portal, q)
		return u
	}
}

var profiles = map[string]Profile{
	Glassdoor: {
		Name: Glassdoor,
		BaseURL: func(q jobs.Query) string {
			return "https://" + links.GlassdoorHost(q.Country)
		},
		SearchURL:    linkURL(links.Glassdoor),
		WaitSelector: "li[data-test='jobListing'], li.react-job-listing",
		Cascade: extract.Profile{
			Containers: []string{
				"li[data-test='jobListing']",
				"li.react-job-listing",
				"article.job-tile",
				"div.JobCard",
			},
			Fields: []extract.Field{
				{Name: jobs.FieldTitle, Selectors: []string{"a[data-test='job-title']", "a.jobLink span", ".job-title"}},
				{Name: jobs.FieldCompany, Selectors: []string{"[data-test='employer-name']", "div[class*='EmployerProfile'] span", ".employer-name"}},
				{Name: jobs.FieldLocation, Selectors: []string{"div[data-test='emp-location']", ".location"}},
				{Name: jobs.FieldURL, Selectors: []string{"a[data-test='job-title']", "a.jobLink", "a"}, Attr: "href"},
				{Name: jobs.FieldDate, Selectors: []string{"div[data-test='job-age']", ".listing-age"}},
				{Name: jobs.FieldSalary, Selectors: []string{"div[data-test='detailSalary']", ".salary-estimate"}},
			},
		},
	},
	GoogleJobs: {
		Name: GoogleJobs,
		BaseURL: func(jobs.Query) string {
			return "https://www.google.com"
		},
		SearchURL:    linkURL(links.GoogleJobs),
		WaitSelector: "li.iFjolb, div.PwjeAc",
		Cascade: extract.Profile{
			Containers: []string{
				"li.iFjolb",
				"div.PwjeAc",
				"div.gws-plugins-horizon-jobs__li-ed",
			},
			Fields: []extract.Field{
				{Name: jobs.FieldTitle, Selectors: []string{"div.BjJfJf", ".tNxQIb", "div[role='heading']"}},
				{Name: jobs.FieldCompany, Selectors: []string{"div.vNEEBe", ".wHYlTd.MKCbgd"}},
				{Name: jobs.FieldLocation, Selectors: []string{"div.Qk80Jf", ".wHYlTd.FqK3wc"}},
				{Name: jobs.FieldURL, Selectors: []string{"a[href^='http']", "a"}, Attr: "href"},
				{Name: jobs.FieldDate, Selectors: []string{"span.LL4CDc", "div.PuiEXc span"}},
			},
		},
	},
}

// Lookup returns the named built-in profile.
func Lookup(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(name)]
	return p, ok
}
