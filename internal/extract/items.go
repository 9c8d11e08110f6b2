package extract

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/headless/detector"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// Items parses body and applies the cascade, mapping parse and layout
// failures to failure signals.
func Items(body []byte, cascade Profile, det *detector.Heuristic, logger *zap.Logger) jobs.Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := Parse(body)
	if err != nil {
		return jobs.Failed(jobs.FailureMalformedPayload, err)
	}
	res, err := Extract(doc, cascade, logger)
	if err != nil {
		if det != nil && det.NeedsRender(200, body) {
			err = fmt.Errorf("%w (page appears client-rendered)", err)
		}
		return jobs.Failed(jobs.FailureLayoutMismatch, err)
	}
	if res.Skipped > 0 {
		logger.Debug("skipped unparseable items",
			zap.String("container", res.Container),
			zap.Int("skipped", res.Skipped),
		)
	}
	return jobs.Result{Items: res.Items}
}
