// Package static implements strategies that fetch one listing page and
// extract postings with a selector cascade.
package static

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/extract"
	"github.com/JakeFAU/jobsearch-aggregator/internal/headless/detector"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, req jobs.FetchRequest) (jobs.FetchResponse, error)
}

// Config configures one static strategy.
type Config struct {
	Profile string
	// BaseURL overrides the profile host.
	BaseURL  string
	Fetcher  Fetcher
	Detector *detector.Heuristic
	Logger   *zap.Logger
}

// Strategy fetches and parses one listing page per attempt.
type Strategy struct {
	profile  Profile
	baseURL  string
	fetcher  Fetcher
	detector *detector.Heuristic
	logger   *zap.Logger
}

// New builds a Strategy for a built-in profile.
func New(cfg Config) (*Strategy, error) {
	profile, ok := Lookup(cfg.Profile)
	if !ok {
		return nil, fmt.Errorf("unknown html profile %q", cfg.Profile)
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("html strategy requires a fetcher")
	}
	det := cfg.Detector
	if det == nil {
		det = detector.NewHeuristic(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		profile:  profile,
		baseURL:  cfg.BaseURL,
		fetcher:  cfg.Fetcher,
		detector: det,
		logger:   logger.With(zap.String("profile", profile.Name)),
	}, nil
}

// BaseURL returns the host relative links resolve against.
func (s *Strategy) BaseURL(q jobs.Query) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return s.profile.BaseURL(q)
}

// SearchURL returns the listing page fetched for q.
func (s *Strategy) SearchURL(q jobs.Query) string {
	q.MaxAgeDays = q.ClampAge(s.profile.MaxAgeDays)
	return s.profile.SearchURL(s.BaseURL(q), q)
}

// Attempt fetches the listing page and applies the cascade.
func (s *Strategy) Attempt(ctx context.Context, q jobs.Query) jobs.Result {
	target := s.SearchURL(q)
	resp, err := s.fetcher.Fetch(ctx, jobs.FetchRequest{URL: target, Headers: s.profile.Headers})
	if err != nil {
		return jobs.Failed(jobs.Classify(err), fmt.Errorf("fetch %s: %w", s.profile.Name, err))
	}
	if failure := jobs.StatusFailure(resp.StatusCode); failure != jobs.FailureNone {
		return jobs.Failed(failure, fmt.Errorf("%s status %d", s.profile.Name, resp.StatusCode))
	}
	if s.detector.Blocked(resp.Body) {
		return jobs.Failed(jobs.FailureBlocked, fmt.Errorf("%s: %w", s.profile.Name, jobs.ErrBlocked))
	}
	return extract.Items(resp.Body, s.profile.Cascade, s.detector, s.logger)
}
