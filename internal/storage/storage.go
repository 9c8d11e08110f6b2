// Package storage archives search exports to a blob store. Backends live in
// the local, memory and gcs subpackages.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/engine"
	"github.com/JakeFAU/jobsearch-aggregator/internal/export"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// BlobStore persists one object and returns a URI for it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Searcher runs a search request.
type Searcher interface {
	Run(ctx context.Context, req jobs.Request) (engine.Report, error)
}

// ObjectPath names the archived export of one search:
// <prefix>/<YYYY-MM-DD>/<search id>.csv, or the export filename when the
// search has no id.
func ObjectPath(prefix string, rep engine.Report, now time.Time) string {
	name := rep.SearchID + ".csv"
	if rep.SearchID == "" {
		name = export.Filename(rep.Query.Title, now)
	}
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format(export.DateLayout), name)
}

// DefaultTimeout bounds one upload when Config leaves Timeout unset.
const DefaultTimeout = 30 * time.Second

// Config tunes an Archiver.
type Config struct {
	// Prefix is prepended to every object path.
	Prefix string
	// Timeout bounds each upload; the search response waits for it.
	Timeout time.Duration
}

// Archiver wraps a Searcher and stores every successful result as CSV.
// Storage failures are logged; the search result is returned regardless.
type Archiver struct {
	next    Searcher
	store   BlobStore
	prefix  string
	timeout time.Duration
	clock   jobs.Clock
	logger  *zap.Logger
}

// NewArchiver returns a Searcher that archives through store.
func NewArchiver(next Searcher, store BlobStore, cfg Config, clock jobs.Clock, logger *zap.Logger) (*Archiver, error) {
	if next == nil {
		return nil, fmt.Errorf("archiver: searcher is required")
	}
	if store == nil {
		return nil, fmt.Errorf("archiver: blob store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("archiver: clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Archiver{
		next:    next,
		store:   store,
		prefix:  cfg.Prefix,
		timeout: timeout,
		clock:   clock,
		logger:  logger,
	}, nil
}

// Run delegates to the wrapped searcher, then archives the records.
func (a *Archiver) Run(ctx context.Context, req jobs.Request) (engine.Report, error) {
	rep, err := a.next.Run(ctx, req)
	if err != nil {
		return rep, err //nolint:wrapcheck
	}
	uri, err := a.Archive(ctx, rep)
	if err != nil {
		a.logger.Warn("archive export failed", zap.String("search_id", rep.SearchID), zap.Error(err))
		return rep, nil
	}
	a.logger.Info("export archived", zap.String("search_id", rep.SearchID), zap.String("uri", uri))
	return rep, nil
}

// Archive writes rep's records to the store.
func (a *Archiver) Archive(ctx context.Context, rep engine.Report) (string, error) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rep.Records); err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}
	key := ObjectPath(a.prefix, rep, a.clock.Now())
	// The upload outlives a canceled request but not the archive timeout.
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	uri, err := a.store.PutObject(uploadCtx, key, export.ContentType, &buf)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return uri, nil
}
