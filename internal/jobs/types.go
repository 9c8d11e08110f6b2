// Package jobs defines core types shared across the aggregation subsystems.
package jobs

import (
	"strings"
	"time"
)

// RecordKind distinguishes concrete postings from fallback search links.
type RecordKind string

// Record kinds emitted by the engine.
const (
	KindListing    RecordKind = "LISTING"
	KindSearchLink RecordKind = "SEARCH_LINK"
)

// Technique identifies how a strategy acquires postings.
type Technique string

// Supported acquisition techniques.
const (
	TechniqueAPI     Technique = "api"
	TechniqueHTML    Technique = "html"
	TechniqueBrowser Technique = "browser"
	TechniqueLinks   Technique = "links"
)

// UnknownCompany is the sentinel used when a source omits the employer.
const UnknownCompany = "N/A"

// Record is the canonical, technique-independent posting shape.
type Record struct {
	PostingDate time.Time  `json:"posting_date"`
	SourceID    string     `json:"source_id"`
	Kind        RecordKind `json:"record_kind"`
	Company     string     `json:"company"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	URL         string     `json:"url"`
	Notes       string     `json:"notes"`
}

// Key returns the deduplication key for the record.
func (r Record) Key() string {
	return r.SourceID + "\x00" + r.URL
}

// RawItem is one untyped extraction produced by a strategy. Keys are
// technique-specific; the normalizer maps them onto Record fields.
type RawItem map[string]any

// Field name conventions shared by the built-in strategies.
const (
	FieldKind     = "kind"
	FieldTitle    = "title"
	FieldCompany  = "company"
	FieldLocation = "location"
	FieldURL      = "url"
	FieldDate     = "date"
	FieldSalary   = "salary"
	FieldNotes    = "notes"
)

// Query is the validated, defaulted form of a Request handed to strategies.
type Query struct {
	Title      string
	City       string
	Country    string
	MaxAgeDays int
}

// Location renders "city, country" dropping empty parts.
func (q Query) Location() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{q.City, q.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// LocationOr returns the rendered location or the fallback when both parts are empty.
func (q Query) LocationOr(fallback string) string {
	if loc := q.Location(); loc != "" {
		return loc
	}
	return fallback
}

// ClampAge limits MaxAgeDays to the provided source maximum (if positive)
// and always to MaxAgeDaysLimit.
func (q Query) ClampAge(maxDays int) int {
	days := min(q.MaxAgeDays, MaxAgeDaysLimit)
	if maxDays > 0 && days > maxDays {
		return maxDays
	}
	return days
}
