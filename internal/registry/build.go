package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/config"
	"github.com/JakeFAU/jobsearch-aggregator/internal/fetcher/headless"
	"github.com/JakeFAU/jobsearch-aggregator/internal/headless/detector"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/api"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/browser"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/links"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/static"
)

// Deps are the shared collaborators strategies are built from.
type Deps struct {
	Fetcher    static.Fetcher
	Renderer   headless.Renderer
	Detector   *detector.Heuristic
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Build constructs the registry from configuration. API entries lacking
// credentials and browser entries without a renderer are kept but disabled
// so operators can see them in logs.
func Build(cfg config.Config, deps Deps) (*Registry, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("registry")

	entries := make([]Entry, 0, len(cfg.Portals))
	for _, p := range cfg.Portals {
		strategy, err := buildStrategy(cfg, p, deps, logger)
		enabled := p.IsEnabled()
		switch {
		case errors.Is(err, api.ErrMissingCredentials), errors.Is(err, errNoRenderer):
			logger.Info("portal disabled",
				zap.String("portal", p.Name),
				zap.String("technique", p.Technique),
				zap.String("reason", err.Error()),
			)
			enabled = false
			strategy = disabledStrategy(err)
		case err != nil:
			return nil, fmt.Errorf("build portal %s: %w", p.Name, err)
		}
		entries = append(entries, Entry{
			Portal:      p.Name,
			Technique:   jobs.Technique(p.Technique),
			Timeout:     p.Timeout(),
			MaxResults:  p.MaxResults,
			Enabled:     enabled,
			Priority:    p.Priority,
			MaxAttempts: p.MaxAttempts,
			Strategy:    strategy,
		})
	}
	reg, err := New(entries)
	if err != nil {
		return nil, err
	}
	logger.Info("registry built",
		zap.Int("entries", reg.Len()),
		zap.Int("enabled", len(reg.Enabled())),
	)
	return reg, nil
}

var errNoRenderer = errors.New("headless rendering disabled")

func disabledStrategy(cause error) jobs.Strategy {
	return jobs.StrategyFunc(func(_ context.Context, _ jobs.Query) jobs.Result {
		return jobs.Failed(jobs.FailureUnreachable, cause)
	})
}

func buildStrategy(cfg config.Config, p config.PortalConfig, deps Deps, logger *zap.Logger) (jobs.Strategy, error) {
	named := logger.With(zap.String("portal", p.Name), zap.String("technique", p.Technique))
	switch jobs.Technique(p.Technique) {
	case jobs.TechniqueAPI:
		return api.New(api.Config{
			Schema:      p.ProfileName(),
			BaseURL:     p.BaseURL,
			Credentials: cfg.Credentials,
			UserAgent:   cfg.HTTP.UserAgent,
			Timeout:     p.Timeout(),
			MaxResults:  p.MaxResults,
			Client:      deps.HTTPClient,
			Logger:      named,
		})
	case jobs.TechniqueHTML:
		return static.New(static.Config{
			Profile:  p.ProfileName(),
			BaseURL:  p.BaseURL,
			Fetcher:  deps.Fetcher,
			Detector: deps.Detector,
			Logger:   named,
		})
	case jobs.TechniqueBrowser:
		if deps.Renderer == nil {
			return nil, errNoRenderer
		}
		return browser.New(browser.Config{
			Profile:     p.ProfileName(),
			URL:         p.BaseURL,
			ScrollSteps: cfg.Headless.ScrollSteps,
			Renderer:    deps.Renderer,
			Detector:    deps.Detector,
			Logger:      named,
		})
	case jobs.TechniqueLinks:
		if !links.Supported(p.ProfileName()) {
			return nil, fmt.Errorf("unknown link portal %q", p.ProfileName())
		}
		return links.Strategy{Portal: p.ProfileName()}, nil
	default:
		return nil, fmt.Errorf("unknown technique %q", p.Technique)
	}
}
