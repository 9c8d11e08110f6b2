package headless

import (
	"context"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Noop is used when headless rendering is disabled.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render always fails with ErrUnavailable.
func (Noop) Render(_ context.Context, _ RenderRequest) (jobs.FetchResponse, error) {
	return jobs.FetchResponse{}, ErrUnavailable
}
