package jobs

import (
	"context"
	"time"
)

// Strategy attempts to obtain postings from one source using one technique.
// Implementations must honor ctx cancellation and must not panic or return
// errors past their boundary; failures are reported through Result.
type Strategy interface {
	Attempt(ctx context.Context, q Query) Result
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, q Query) Result

// Attempt calls f(ctx, q).
func (f StrategyFunc) Attempt(ctx context.Context, q Query) Result {
	return f(ctx, q)
}

// Result is the outcome of a single strategy attempt.
type Result struct {
	Items   []RawItem
	Failure Failure
	// Cause carries the underlying error for logging; it never leaves the engine.
	Cause error
}

// OK reports whether the attempt finished without a failure signal.
func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Courtesy delays requests to a portal to respect its load budget. key names
// the registry entry ("<portal>/<technique>").
type Courtesy interface {
	Wait(ctx context.Context, key string) error
}

// FetchRequest captures everything needed to fetch a listing page.
type FetchRequest struct {
	URL     string
	Headers map[string][]string
}

// FetchResponse is the result returned by a page fetcher.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	Duration   time.Duration
}
