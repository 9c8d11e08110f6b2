// Package browser implements strategies for listing pages that only render
// with JavaScript.
package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/extract"
	"github.com/JakeFAU/jobsearch-aggregator/internal/fetcher/headless"
	"github.com/JakeFAU/jobsearch-aggregator/internal/headless/detector"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Config configures one browser strategy.
type Config struct {
	Profile string
	// URL overrides the profile search URL.
	URL         string
	ScrollSteps int
	Renderer    headless.Renderer
	Detector    *detector.Heuristic
	Logger      *zap.Logger
}

// Strategy renders one listing page per attempt.
type Strategy struct {
	profile     Profile
	url         string
	scrollSteps int
	renderer    headless.Renderer
	detector    *detector.Heuristic
	logger      *zap.Logger
}

// New builds a Strategy for a built-in profile.
func New(cfg Config) (*Strategy, error) {
	profile, ok := Lookup(cfg.Profile)
	if !ok {
		return nil, fmt.Errorf("unknown browser profile %q", cfg.Profile)
	}
	if cfg.Renderer == nil {
		return nil, errors.New("browser strategy requires a renderer")
	}
	if cfg.ScrollSteps < 0 {
		return nil, fmt.Errorf("scroll steps must be >= 0")
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
		profile:     profile,
		url:         cfg.URL,
		scrollSteps: cfg.ScrollSteps,
		renderer:    cfg.Renderer,
		detector:    det,
		logger:      logger.With(zap.String("profile", profile.Name)),
	}, nil
}

// BaseURL returns the host relative links resolve against.
func (s *Strategy) BaseURL(q jobs.Query) string {
	return s.profile.BaseURL(q)
}

// SearchURL returns the page rendered for q.
func (s *Strategy) SearchURL(q jobs.Query) string {
	if s.url != "" {
		return s.url
	}
	return s.profile.SearchURL(q)
}

// Attempt renders the page, waits for listings, and applies the cascade.
func (s *Strategy) Attempt(ctx context.Context, q jobs.Query) jobs.Result {
	resp, err := s.renderer.Render(ctx, headless.RenderRequest{
		URL:          s.SearchURL(q),
		WaitSelector: s.profile.WaitSelector,
		ScrollSteps:  s.scrollSteps,
	})
	if err != nil {
		return jobs.Failed(classifyRender(err), fmt.Errorf("render %s: %w", s.profile.Name, err))
	}
	if failure := jobs.StatusFailure(resp.StatusCode); failure != jobs.FailureNone {
		return jobs.Failed(failure, fmt.Errorf("%s status %d", s.profile.Name, resp.StatusCode))
	}
	if s.detector.Blocked(resp.Body) {
		return jobs.Failed(jobs.FailureBlocked, fmt.Errorf("%s: %w", s.profile.Name, jobs.ErrBlocked))
	}
	return extract.Items(resp.Body, s.profile.Cascade, nil, s.logger)
}

func classifyRender(err error) jobs.Failure {
	switch {
	case errors.Is(err, headless.ErrRenderTimeout), errors.Is(err, context.DeadlineExceeded):
		return jobs.FailureRenderTimeout
	case errors.Is(err, headless.ErrUnavailable):
		return jobs.FailureUnreachable
	default:
		return jobs.Classify(err)
	}
}
