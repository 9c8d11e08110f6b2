// Package metrics exposes process-wide Prometheus collectors for fetches,
// courtesy delays and the HTTP surface.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchPagesTotal              *prometheus.CounterVec
	fetchBytesTotal              *prometheus.CounterVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	robotsFallbackTotal          prometheus.Counter
	activeStrategies             prometheus.Gauge
	courtesyDelaySeconds         *prometheus.HistogramVec
	browserSessionsAcquiredTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsearch_fetch_pages_total",
				Help: "Total number of listing pages fetched, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsearch_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)

		robotsFallbackTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobsearch_robots_fallback_total",
				Help: "Total robots.txt fetches that timed out and fell back to allow-all.",
			},
		)

		activeStrategies = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobsearch_active_strategies",
				Help: "Number of strategy attempts currently in flight.",
			},
		)

		courtesyDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobsearch_courtesy_delay_seconds",
				Help:    "Histogram of courtesy wait durations per portal/technique strategy.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"strategy"},
		)

		browserSessionsAcquiredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobsearch_browser_sessions_total",
				Help: "Browser sessions acquired, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch.
func ObserveFetch(site string, status int, bytesFetched int) {
	if fetchPagesTotal == nil {
		return
	}
	host := SanitizeSite(site)
	fetchPagesTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(host).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRobotsFallback counts robots.txt fetches answered with the synthetic allow-all.
func ObserveRobotsFallback() {
	if robotsFallbackTotal == nil {
		return
	}
	robotsFallbackTotal.Inc()
}

// IncActiveStrategies increments the in-flight strategy gauge.
func IncActiveStrategies() {
	if activeStrategies == nil {
		return
	}
	activeStrategies.Inc()
}

// DecActiveStrategies decrements the in-flight strategy gauge.
func DecActiveStrategies() {
	if activeStrategies == nil {
		return
	}
	activeStrategies.Dec()
}

// ObserveCourtesyDelay records the duration of a courtesy wait.
func ObserveCourtesyDelay(strategy string, duration time.Duration) {
	if courtesyDelaySeconds == nil {
		return
	}
	courtesyDelaySeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveBrowserSession counts session acquisitions ("acquired", "saturated", "error").
func ObserveBrowserSession(outcome string) {
	if browserSessionsAcquiredTotal == nil {
		return
	}
	browserSessionsAcquiredTotal.WithLabelValues(outcome).Inc()
}
