// Package engine runs every enabled registry entry for a search in a bounded
// pool, merges what they return, and falls back to search links when no live
// source produced anything.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/metrics"
	"github.com/JakeFAU/jobsearch-aggregator/internal/normalize"
	"github.com/JakeFAU/jobsearch-aggregator/internal/progress"
	"github.com/JakeFAU/jobsearch-aggregator/internal/registry"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/links"
)

// DefaultMaxConcurrency bounds the pool when Config leaves it unset.
const DefaultMaxConcurrency = 4

// Search outcomes reported on SEARCH_DONE.
const (
	ResultLive     = "live"
	ResultFallback = "fallback"
)

// RetryPolicy decides whether a failed attempt is repeated and how long to
// wait first.
type RetryPolicy interface {
	ShouldRetry(f jobs.Failure, attempt, maxAttempts int) bool
	Backoff(attempt int) time.Duration
}

// Config tunes the engine.
type Config struct {
	MaxConcurrency    int
	DefaultMaxAgeDays int
}

// Deps are the engine's collaborators. Registry and Fallback are required;
// the rest default to no-ops.
type Deps struct {
	Registry   *registry.Registry
	Fallback   *links.Fallback
	Normalizer *normalize.Normalizer
	Courtesy   jobs.Courtesy
	Retry      RetryPolicy
	Emitter    progress.Emitter
	IDs        jobs.IDGenerator
	Clock      jobs.Clock
	Logger     *zap.Logger
}

// Engine is safe for concurrent searches.
type Engine struct {
	cfg        Config
	registry   *registry.Registry
	fallback   *links.Fallback
	normalizer *normalize.Normalizer
	courtesy   jobs.Courtesy
	retry      RetryPolicy
	emitter    progress.Emitter
	ids        jobs.IDGenerator
	logger     *zap.Logger
}

// New wires an Engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("engine: registry is required")
	}
	if deps.Fallback == nil {
		return nil, fmt.Errorf("engine: link fallback is required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.DefaultMaxAgeDays <= 0 {
		cfg.DefaultMaxAgeDays = jobs.DefaultMaxAgeDays
	}
	e := &Engine{
		cfg:        cfg,
		registry:   deps.Registry,
		fallback:   deps.Fallback,
		normalizer: deps.Normalizer,
		courtesy:   deps.Courtesy,
		retry:      deps.Retry,
		emitter:    deps.Emitter,
		ids:        deps.IDs,
		logger:     deps.Logger,
	}
	if e.normalizer == nil {
		e.normalizer = normalize.New(deps.Clock)
	}
	if e.retry == nil {
		e.retry = noRetry{}
	}
	if e.emitter == nil {
		e.emitter = progress.Discard
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e, nil
}

// Outcome summarizes one registry entry's part in a search.
type Outcome struct {
	Portal    string
	Technique jobs.Technique
	Failure   jobs.Failure
	Attempts  int
	// Abandoned is set when the entry exceeded its timeout; anything it
	// produced afterwards was discarded.
	Abandoned bool
	Items     int
	Records   int
	Duration  time.Duration
}

// Report is the full result of a search.
type Report struct {
	SearchID     string
	Query        jobs.Query
	Records      []jobs.Record
	Outcomes     []Outcome
	FallbackUsed bool
	Duration     time.Duration
}

// Search validates req and returns the merged record set. The only error is
// one wrapping jobs.ErrInvalidRequest; for a valid request the result is
// never empty.
func (e *Engine) Search(ctx context.Context, req jobs.Request) ([]jobs.Record, error) {
	rep, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.Records, nil
}

// Run is Search with per-entry outcomes.
func (e *Engine) Run(ctx context.Context, req jobs.Request) (Report, error) {
	q, err := req.Query(e.cfg.DefaultMaxAgeDays)
	if err != nil {
		return Report{}, err
	}
	return e.RunQuery(ctx, q), nil
}

// RunQuery searches for an already validated query.
func (e *Engine) RunQuery(ctx context.Context, q jobs.Query) Report {
	start := time.Now()
	rep := Report{SearchID: e.newSearchID(), Query: q}
	sid := progress.ParseSearchID(rep.SearchID)
	logger := e.logger.With(zap.String("search_id", rep.SearchID))

	entries := e.registry.Enabled()
	e.emit(progress.Event{SearchID: sid, Stage: progress.StageSearchStart,
		Note: fmt.Sprintf("%d strategies", len(entries))})
	logger.Info("search started",
		zap.String("title", q.Title),
		zap.String("location", q.Location()),
		zap.Int("max_age_days", q.MaxAgeDays),
		zap.Int("strategies", len(entries)),
	)

	results := e.dispatch(ctx, entries, q)
	rep.Records, rep.Outcomes = e.merge(entries, results, q)
	for i, o := range rep.Outcomes {
		evt := progress.Event{
			SearchID:  sid,
			Stage:     progress.StageStrategyDone,
			Portal:    o.Portal,
			Technique: string(o.Technique),
			Outcome:   o.Failure.String(),
			Records:   o.Records,
			Attempts:  o.Attempts,
			Dur:       o.Duration,
		}
		if cause := results[i].res.Cause; cause != nil {
			evt.Note = cause.Error()
		}
		e.emit(evt)
	}

	result := ResultLive
	if len(rep.Records) == 0 {
		rep.Records = e.fallback.Records(q)
		rep.FallbackUsed = true
		result = ResultFallback
		e.emit(progress.Event{SearchID: sid, Stage: progress.StageFallbackUsed, Records: len(rep.Records)})
		logger.Info("no live results, using search links", zap.Int("links", len(rep.Records)))
	}
	rep.Duration = time.Since(start)
	e.emit(progress.Event{
		SearchID: sid,
		Stage:    progress.StageSearchDone,
		Outcome:  result,
		Records:  len(rep.Records),
		Dur:      rep.Duration,
	})
	logger.Info("search finished",
		zap.String("result", result),
		zap.Int("records", len(rep.Records)),
		zap.Duration("dur", rep.Duration),
	)
	return rep
}

type entryResult struct {
	res       jobs.Result
	attempts  int
	abandoned bool
	dur       time.Duration
}

// dispatch runs every entry, at most MaxConcurrency at a time, and returns
// results aligned with entries.
func (e *Engine) dispatch(ctx context.Context, entries []registry.Entry, q jobs.Query) []entryResult {
	results := make([]entryResult, len(entries))
	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			metrics.IncActiveStrategies()
			defer metrics.DecActiveStrategies()
			results[i] = e.runEntry(ctx, entry, q)
			return nil
		})
	}
	// Entries never return errors.
	_ = g.Wait()
	return results
}

// runEntry bounds one entry by its timeout. When the budget runs out the
// entry is abandoned: its goroutine may keep running until the strategy
// observes cancellation, but its result is dropped.
func (e *Engine) runEntry(parent context.Context, entry registry.Entry, q jobs.Query) entryResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, entry.Timeout)
	defer cancel()

	done := make(chan entryResult, 1)
	go func() {
		done <- e.attemptWithRetry(ctx, entry, q)
	}()
	select {
	case r := <-done:
		r.dur = time.Since(start)
		return r
	case <-ctx.Done():
		return entryResult{
			res:       jobs.Failed(jobs.FailureTimeout, ctx.Err()),
			abandoned: true,
			dur:       time.Since(start),
		}
	}
}

func (e *Engine) attemptWithRetry(ctx context.Context, entry registry.Entry, q jobs.Query) entryResult {
	maxAttempts := entry.Attempts()
	var res jobs.Result
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		if e.courtesy != nil {
			if err := e.courtesy.Wait(ctx, entry.Key()); err != nil {
				return entryResult{res: jobs.Failed(jobs.FailureTimeout, err), attempts: attempt}
			}
		}
		res = safeAttempt(ctx, entry.Strategy, q)
		if res.OK() || !e.retry.ShouldRetry(res.Failure, attempt, maxAttempts) {
			break
		}
		wait := e.retry.Backoff(attempt)
		e.logger.Debug("retrying strategy",
			zap.String("portal", entry.Portal),
			zap.String("technique", string(entry.Technique)),
			zap.Int("attempt", attempt),
			zap.Stringer("failure", res.Failure),
			zap.Duration("backoff", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return entryResult{res: res, attempts: attempt}
		case <-timer.C:
		}
	}
	return entryResult{res: res, attempts: attempt}
}

// safeAttempt converts a strategy panic into a failure signal.
func safeAttempt(ctx context.Context, s jobs.Strategy, q jobs.Query) (res jobs.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = jobs.Failed(jobs.FailurePanic, fmt.Errorf("strategy panic: %v", r))
		}
	}()
	return s.Attempt(ctx, q)
}

// merge normalizes entry output in registry priority order, caps each entry
// at its MaxResults and keeps the first record per (source, url).
func (e *Engine) merge(entries []registry.Entry, results []entryResult, q jobs.Query) ([]jobs.Record, []Outcome) {
	var merged []jobs.Record
	seen := make(map[string]struct{})
	outcomes := make([]Outcome, len(entries))
	for i, entry := range entries {
		r := results[i]
		o := Outcome{
			Portal:    entry.Portal,
			Technique: entry.Technique,
			Failure:   r.res.Failure,
			Attempts:  r.attempts,
			Abandoned: r.abandoned,
			Duration:  r.dur,
		}
		items := r.res.Items
		if r.abandoned {
			items = nil
		}
		if entry.MaxResults > 0 && len(items) > entry.MaxResults {
			items = items[:entry.MaxResults]
		}
		o.Items = len(items)
		for _, rec := range e.normalizer.Normalize(entry.Source(q), q, items) {
			key := rec.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, rec)
			o.Records++
		}
		if !r.res.OK() {
			e.logger.Debug("strategy failed",
				zap.String("portal", entry.Portal),
				zap.String("technique", string(entry.Technique)),
				zap.Stringer("failure", r.res.Failure),
				zap.Bool("abandoned", r.abandoned),
				zap.Error(r.res.Cause),
			)
		}
		outcomes[i] = o
	}
	return merged, outcomes
}

func (e *Engine) newSearchID() string {
	if e.ids != nil {
		if id, err := e.ids.NewID(); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

func (e *Engine) emit(evt progress.Event) {
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	e.emitter.Emit(evt)
}

type noRetry struct{}

func (noRetry) ShouldRetry(jobs.Failure, int, int) bool { return false }
func (noRetry) Backoff(int) time.Duration               { return 0 }
