// Package registry holds the immutable, priority-ordered list of strategy
// entries the engine dispatches.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/normalize"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/links"
)

// Entry binds one portal to one strategy with its budget. A portal may
// appear once per technique; Portal alone is the records' source id.
type Entry struct {
	Portal      string
	Technique   jobs.Technique
	Timeout     time.Duration
	MaxResults  int
	Enabled     bool
	Priority    int
	MaxAttempts int
	Strategy    jobs.Strategy
}

// Key identifies the entry within the registry as "<portal>/<technique>".
func (e Entry) Key() string {
	return e.Portal + "/" + string(e.Technique)
}

type baseURLer interface {
	BaseURL(q jobs.Query) string
}

type searchURLer interface {
	SearchURL(q jobs.Query) string
}

// Source describes the entry for the normalizer. The search URL falls back
// to the portal's search link when the strategy does not expose one.
func (e Entry) Source(q jobs.Query) normalize.Source {
	src := normalize.Source{ID: e.Portal}
	if b, ok := e.Strategy.(baseURLer); ok {
		src.BaseURL = b.BaseURL(q)
	}
	if s, ok := e.Strategy.(searchURLer); ok {
		src.SearchURL = s.SearchURL(q)
	}
	if src.SearchURL == "" && links.Supported(e.Portal) {
		src.SearchURL, _ = links.BuildURL(e.Portal, q)
	}
	if src.SearchURL == "" {
		src.SearchURL = src.BaseURL
	}
	return src
}

// Attempts returns the attempt budget, at least one.
func (e Entry) Attempts() int {
	if e.MaxAttempts < 1 {
		return 1
	}
	return e.MaxAttempts
}

// Registry is read-only after construction.
type Registry struct {
	entries []Entry
}

// ErrNoEntries is returned when a registry would dispatch nothing.
var ErrNoEntries = errors.New("registry has no entries")

// New validates entries and orders them by priority (lower first), keeping
// declaration order within a tier.
func New(entries []Entry) (*Registry, error) {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		switch {
		case e.Portal == "":
			return nil, fmt.Errorf("entry %d: portal is required", i)
		case seen[e.Key()]:
			return nil, fmt.Errorf("entry %d: duplicate %s strategy for portal %q", i, e.Technique, e.Portal)
		case e.Strategy == nil:
			return nil, fmt.Errorf("entry %d (%s): strategy is required", i, e.Portal)
		case e.Timeout <= 0:
			return nil, fmt.Errorf("entry %d (%s): timeout must be > 0", i, e.Portal)
		case e.MaxResults < 0:
			return nil, fmt.Errorf("entry %d (%s): max results must be >= 0", i, e.Portal)
		}
		seen[e.Key()] = true
	}
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Registry{entries: sorted}, nil
}

// Entries returns a copy of all entries in priority order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Enabled returns the enabled entries in priority order.
func (r *Registry) Enabled() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}
