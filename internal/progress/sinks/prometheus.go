package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/jobsearch-aggregator/internal/progress"
)

// PrometheusSink exports per-strategy and per-search metrics.
type PrometheusSink struct {
	strategyRuns     *prometheus.CounterVec
	strategyDuration *prometheus.HistogramVec
	strategyRecords  *prometheus.CounterVec
	searches         *prometheus.CounterVec
	searchDuration   prometheus.Histogram
	fallbacks        prometheus.Counter
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		strategyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsearch_strategy_runs_total",
			Help: "Strategy invocations partitioned by portal, technique and outcome.",
		}, []string{"portal", "technique", "outcome"}),
		strategyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobsearch_strategy_duration_seconds",
			Help:    "Wall time per strategy invocation, retries included.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"portal", "technique"}),
		strategyRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsearch_strategy_records_total",
			Help: "Records contributed per portal before merging.",
		}, []string{"portal"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsearch_searches_total",
			Help: "Completed searches partitioned by result (live or fallback).",
		}, []string{"result"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobsearch_search_duration_seconds",
			Help:    "Wall time per search.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobsearch_fallback_used_total",
			Help: "Searches answered by search links only.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.strategyRuns,
		s.strategyDuration,
		s.strategyRecords,
		s.searches,
		s.searchDuration,
		s.fallbacks,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageStrategyDone:
			s.strategyRuns.WithLabelValues(evt.Portal, orUnknown(evt.Technique), evt.Outcome).Inc()
			if evt.Dur > 0 {
				s.strategyDuration.WithLabelValues(evt.Portal, orUnknown(evt.Technique)).Observe(evt.Dur.Seconds())
			}
			if evt.Records > 0 {
				s.strategyRecords.WithLabelValues(evt.Portal).Add(float64(evt.Records))
			}
		case progress.StageFallbackUsed:
			s.fallbacks.Inc()
		case progress.StageSearchDone:
			s.searches.WithLabelValues(evt.Outcome).Inc()
			if evt.Dur > 0 {
				s.searchDuration.Observe(evt.Dur.Seconds())
			}
		}
	}
	return nil
}

// Close implements progress.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
