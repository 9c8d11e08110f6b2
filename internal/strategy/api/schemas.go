package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Schema describes one job API: how to ask and where the items live.
type Schema struct {
	Name string
	// BaseURL is the production endpoint; Config.BaseURL overrides it.
	BaseURL string
	// Credentials lists the keys that must be present in Config.Credentials.
	Credentials []string
	// MaxAgeDays clamps the recency window (0 means unbounded).
	MaxAgeDays int
	// ListKey is the top-level JSON field holding the item array.
	ListKey string
	Build   func(ctx context.Context, base string, q jobs.Query, creds map[string]string, limit int) (*http.Request, error)
	Adapt   func(jobs.RawItem) jobs.RawItem
	// Site is the human-facing search page used when an item has no link.
	Site func(q jobs.Query) string
}

// Built-in schema names.
const (
	Adzuna   = "adzuna"
	JSearch  = "jsearch"
	Remotive = "remotive"
)

var schemas = map[string]Schema{
	Adzuna: {
		Name:        Adzuna,
		BaseURL:     "https://api.adzuna.com/v1/api/jobs",
		Credentials: []string{"adzuna_app_id", "adzuna_app_key"},
		ListKey:     "results",
		Build:       buildAdzuna,
		Site:        adzunaSite,
	},
	JSearch: {
		Name:        JSearch,
		BaseURL:     "https://jsearch.p.rapidapi.com/search",
		Credentials: []string{"rapidapi_key"},
		MaxAgeDays:  30,
		ListKey:     "data",
		Build:       buildJSearch,
		Adapt:       adaptJSearch,
		Site:        jsearchSite,
	},
	Remotive: {
		Name:    Remotive,
		BaseURL: "https://remotive.com/api/remote-jobs",
		ListKey: "jobs",
		Build:   buildRemotive,
		Site:    remotiveSite,
	},
}

// Lookup returns the named built-in schema.
func Lookup(name string) (Schema, bool) {
	s, ok := schemas[strings.ToLower(name)]
	return s, ok
}

var adzunaCountries = map[string]string{
	"canada":         "ca",
	"ca":             "ca",
	"united states":  "us",
	"usa":            "us",
	"us":             "us",
	"united kingdom": "gb",
	"uk":             "gb",
	"india":          "in",
	"australia":      "au",
	"germany":        "de",
}

func adzunaCountry(country string) string {
	if c, ok := adzunaCountries[strings.ToLower(strings.TrimSpace(country))]; ok {
		return c
	}
	return "ca"
}

var adzunaHosts = map[string]string{
	"ca": "www.adzuna.ca",
	"us": "www.adzuna.com",
	"gb": "www.adzuna.co.uk",
	"in": "www.adzuna.in",
	"au": "www.adzuna.com.au",
	"de": "www.adzuna.de",
}

func adzunaSite(q jobs.Query) string {
	v := url.Values{}
	v.Set("q", q.Title)
	if q.City != "" {
		v.Set("w", q.City)
	}
	return "https://" + adzunaHosts[adzunaCountry(q.Country)] + "/search?" + v.Encode()
}

func buildAdzuna(ctx context.Context, base string, q jobs.Query, creds map[string]string, limit int) (*http.Request, error) {
	v := url.Values{}
	v.Set("app_id", creds["adzuna_app_id"])
	v.Set("app_key", creds["adzuna_app_key"])
	v.Set("what", q.Title)
	if q.City != "" {
		v.Set("where", q.City)
	}
	v.Set("max_days_old", strconv.Itoa(q.MaxAgeDays))
	v.Set("results_per_page", strconv.Itoa(limit))
	v.Set("content-type", "application/json")
	target := fmt.Sprintf("%s/%s/search/1?%s", strings.TrimRight(base, "/"), adzunaCountry(q.Country), v.Encode())
	return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
}

func jsearchWindow(days int) string {
	switch {
	case days <= 1:
		return "today"
	case days <= 3:
		return "3days"
	case days <= 7:
		return "week"
	default:
		return "month"
	}
}

func buildJSearch(ctx context.Context, base string, q jobs.Query, creds map[string]string, _ int) (*http.Request, error) {
	v := url.Values{}
	v.Set("query", q.Title+" in "+q.Location())
	v.Set("page", "1")
	v.Set("num_pages", "1")
	v.Set("date_posted", jsearchWindow(q.MaxAgeDays))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", creds["rapidapi_key"])
	req.Header.Set("X-RapidAPI-Host", "jsearch.p.rapidapi.com")
	return req, nil
}

func jsearchSite(q jobs.Query) string {
	v := url.Values{}
	v.Set("q", q.Title+" jobs in "+q.Location())
	v.Set("ibp", "htl;jobs")
	return "https://www.google.com/search?" + v.Encode()
}

func adaptJSearch(item jobs.RawItem) jobs.RawItem {
	var parts []string
	for _, k := range []string{"job_city", "job_state", "job_country"} {
		if s, ok := item[k].(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	if len(parts) > 0 {
		item[jobs.FieldLocation] = strings.Join(parts, ", ")
	}
	if lo, ok := item["job_min_salary"]; ok && lo != nil {
		item["salary_min"] = lo
	}
	if hi, ok := item["job_max_salary"]; ok && hi != nil {
		item["salary_max"] = hi
	}
	return item
}

func remotiveSite(q jobs.Query) string {
	v := url.Values{}
	v.Set("search", q.Title)
	return "https://remotive.com/remote-jobs?" + v.Encode()
}

func buildRemotive(ctx context.Context, base string, q jobs.Query, _ map[string]string, limit int) (*http.Request, error) {
	v := url.Values{}
	v.Set("search", q.Title)
	v.Set("limit", strconv.Itoa(limit))
	return http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+v.Encode(), nil)
}
