// Package headless renders JavaScript-driven listing pages with chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/metrics"
)

// ErrRenderTimeout is returned when the readiness selector never appears.
var ErrRenderTimeout = errors.New("render readiness timeout")

// ErrUnavailable is returned by renderers that cannot launch a browser.
var ErrUnavailable = errors.New("headless renderer not configured")

// Config controls the behavior of the headless renderer.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	ScrollDelay       time.Duration
	Stealth           bool
}

// RenderRequest describes one page render.
type RenderRequest struct {
	URL          string
	Headers      map[string][]string
	WaitSelector string
	ScrollSteps  int
}

// Renderer renders a page and returns the resulting DOM.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (jobs.FetchResponse, error)
}

// Fetcher renders pages in isolated chromedp tabs sharing one allocator.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless renderer backed by chromedp. No browser is
// launched until the first render.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.ScrollDelay <= 0 {
		cfg.ScrollDelay = 750 * time.Millisecond
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context, terminating the browser.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Render navigates to the request URL in a fresh tab, waits for the readiness
// selector, scrolls, and returns the rendered DOM. The tab and its slot are
// released on every exit path.
func (f *Fetcher) Render(ctx context.Context, req RenderRequest) (jobs.FetchResponse, error) {
	sess, err := f.openSession(ctx)
	if err != nil {
		return jobs.FetchResponse{}, err
	}
	defer sess.Close()

	navCtx, cancel := context.WithTimeout(sess.ctx, f.navTimeout())
	defer cancel()
	// Cancel the tab when the caller gives up so chromedp calls unblock.
	stop := context.AfterFunc(ctx, sess.Close)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(navCtx, meta.captureEvent)

	start := time.Now()
	html, finalURL, err := f.runHeadless(navCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return jobs.FetchResponse{}, fmt.Errorf("render canceled: %w", ctx.Err())
		}
		return jobs.FetchResponse{}, err
	}

	status, headers, responseURL := meta.snapshotWithFallbacks(req.URL, finalURL)
	metrics.ObserveFetch(responseURL, status, len(html))
	return jobs.FetchResponse{
		URL:        responseURL,
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(html),
		Duration:   time.Since(start),
	}, nil
}

func (f *Fetcher) runHeadless(ctx context.Context, req RenderRequest) (string, string, error) {
	setup := []chromedp.Action{f.networkSetupAction(req.Headers)}
	if f.cfg.Stealth {
		setup = append(setup, injectStealthScript())
	}
	setup = append(setup,
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, setup...); err != nil {
		return "", "", fmt.Errorf("chromedp navigate: %w", err)
	}

	if req.WaitSelector != "" {
		waitCtx, cancel := context.WithTimeout(ctx, f.cfg.WaitTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(req.WaitSelector, chromedp.ByQuery))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return "", "", fmt.Errorf("chromedp wait: %w", ctx.Err())
			}
			return "", "", fmt.Errorf("%w: %s", ErrRenderTimeout, req.WaitSelector)
		}
	}

	for i := 0; i < req.ScrollSteps; i++ {
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(f.cfg.ScrollDelay),
		); err != nil {
			return "", "", fmt.Errorf("chromedp scroll %d: %w", i, err)
		}
	}

	var html, finalURL string
	if err := chromedp.Run(ctx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", "", fmt.Errorf("chromedp capture: %w", err)
	}
	return html, finalURL, nil
}

func (f *Fetcher) networkSetupAction(headers http.Header) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func injectStealthScript() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("inject stealth script: %w", err)
		}
		return nil
	})
}

// session is one browser tab holding one limiter slot.
type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	release func()
	once    sync.Once
}

// Close closes the tab and frees its slot. Safe to call more than once.
func (s *session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.release()
	})
}

func (f *Fetcher) openSession(ctx context.Context) (*session, error) {
	if err := f.acquire(ctx); err != nil {
		metrics.ObserveBrowserSession("saturated")
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(f.allocator)
	metrics.ObserveBrowserSession("acquired")
	return &session{ctx: tabCtx, cancel: cancel, release: f.release}, nil
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

func (f *Fetcher) navTimeout() time.Duration {
	if f.cfg.NavigationTimeout > 0 {
		return f.cfg.NavigationTimeout
	}
	return 45 * time.Second
}

type responseMeta struct {
	mu      sync.RWMutex
	status  int
	headers http.Header
	url     string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{headers: http.Header{}}
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range event.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}

	m.mu.Lock()
	// Keep the first document response; later ones are iframes or redirects we followed.
	if m.status == 0 {
		m.status = int(event.Response.Status)
		m.headers = headers
		m.url = event.Response.URL
	}
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, http.Header, string) {
	m.mu.RLock()
	status, headers, url := m.status, m.headers.Clone(), m.url
	m.mu.RUnlock()

	switch {
	case finalURL != "":
		url = finalURL
	case url == "":
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, headers, url
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			headers[key] = values[0]
		default:
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
