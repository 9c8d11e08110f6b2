// Package api implements strategies backed by structured job APIs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

const maxBodyBytes = 8 << 20

// ErrMissingCredentials is returned by New when a schema's keys are absent.
var ErrMissingCredentials = errors.New("missing api credentials")

// Config configures one API strategy.
type Config struct {
	Schema      string
	BaseURL     string
	Credentials map[string]string
	UserAgent   string
	Timeout     time.Duration
	MaxResults  int
	Client      *http.Client
	Logger      *zap.Logger
}

// Strategy issues one request to a job API per attempt.
type Strategy struct {
	schema    Schema
	base      string
	creds     map[string]string
	userAgent string
	limit     int
	client    *http.Client
	logger    *zap.Logger
}

// New builds a Strategy for a built-in schema.
func New(cfg Config) (*Strategy, error) {
	schema, ok := Lookup(cfg.Schema)
	if !ok {
		return nil, fmt.Errorf("unknown api schema %q", cfg.Schema)
	}
	for _, key := range schema.Credentials {
		if cfg.Credentials[key] == "" {
			return nil, fmt.Errorf("%w: %s needs %s", ErrMissingCredentials, schema.Name, key)
		}
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := cfg.BaseURL
	if base == "" {
		base = schema.BaseURL
	}
	limit := cfg.MaxResults
	if limit <= 0 {
		limit = 50
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		schema:    schema,
		base:      base,
		creds:     cfg.Credentials,
		userAgent: cfg.UserAgent,
		limit:     limit,
		client:    client,
		logger:    logger.With(zap.String("schema", schema.Name)),
	}, nil
}

// BaseURL returns the site relative links resolve against.
func (s *Strategy) BaseURL(q jobs.Query) string {
	u, err := url.Parse(s.schema.Site(q))
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// SearchURL returns the human-facing search page for q.
func (s *Strategy) SearchURL(q jobs.Query) string {
	return s.schema.Site(q)
}

// Attempt queries the API and decodes its item array.
func (s *Strategy) Attempt(ctx context.Context, q jobs.Query) jobs.Result {
	q.MaxAgeDays = q.ClampAge(s.schema.MaxAgeDays)
	req, err := s.schema.Build(ctx, s.base, q, s.creds, s.limit)
	if err != nil {
		return jobs.Failed(jobs.FailureMalformedPayload, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return jobs.Failed(jobs.Classify(err), fmt.Errorf("%s request: %w", s.schema.Name, redact(err)))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if failure := jobs.StatusFailure(resp.StatusCode); failure != jobs.FailureNone {
		return jobs.Failed(failure, fmt.Errorf("%s status %d", s.schema.Name, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return jobs.Failed(jobs.Classify(err), fmt.Errorf("%s read body: %w", s.schema.Name, err))
	}
	items, err := s.decode(body)
	if err != nil {
		return jobs.Failed(jobs.FailureMalformedPayload, err)
	}
	return jobs.Result{Items: items}
}

func (s *Strategy) decode(body []byte) ([]jobs.RawItem, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s decode envelope: %w", s.schema.Name, err)
	}
	raw, ok := envelope[s.schema.ListKey]
	if !ok {
		return nil, fmt.Errorf("%s payload has no %q field", s.schema.Name, s.schema.ListKey)
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%s decode %s: %w", s.schema.Name, s.schema.ListKey, err)
	}
	items := make([]jobs.RawItem, 0, len(list))
	for _, entry := range list {
		if entry == nil {
			continue
		}
		item := jobs.RawItem(entry)
		if s.schema.Adapt != nil {
			item = s.schema.Adapt(item)
		}
		items = append(items, item)
	}
	return items, nil
}

// redact drops the request URL, which may carry credentials, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
