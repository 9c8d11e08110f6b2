package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/config"
	"github.com/JakeFAU/jobsearch-aggregator/internal/engine"
	"github.com/JakeFAU/jobsearch-aggregator/internal/export"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/metrics"
)

// ServiceName is reported by GET /.
const ServiceName = "Job Search Aggregator API"

// Version is overridden at build time with -ldflags.
var Version = "dev"

const maxRequestBody = 64 << 10

// Searcher runs one search. *engine.Engine satisfies it.
type Searcher interface {
	Run(ctx context.Context, req jobs.Request) (engine.Report, error)
}

// ReadyFunc reports whether downstream dependencies can serve traffic.
type ReadyFunc func(ctx context.Context) error

// Server wires HTTP handlers to the search engine.
type Server struct {
	router   chi.Router
	searcher Searcher
	clock    jobs.Clock
	cfg      config.Config
	logger   *zap.Logger
	ready    ReadyFunc
}

// NewServer constructs a Server with middleware and routes. ready may be nil.
func NewServer(searcher Searcher, clock jobs.Clock, cfg config.Config, logger *zap.Logger, ready ReadyFunc) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		ready:    ready,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID", "X-Search-ID", "X-Search-Fallback"},
		MaxAge:         300,
	}))

	r.Get("/", s.info)
	r.Get("/healthz", s.healthz)
	r.Get("/health", s.health)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if d := cfg.RequestTimeout(); d > 0 {
			r.Use(timeoutMiddleware(d))
		}
		r.Post("/search", s.search)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    ServiceName,
		"status":  "running",
		"version": Version,
		"endpoints": map[string]string{
			"health":        "/health",
			"search (POST)": "/search",
			"metrics":       "/metrics",
		},
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// searchRequest mirrors jobs.Request but tolerates job_age sent as a string
// or left null.
type searchRequest struct {
	JobTitle string  `json:"job_title"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	JobAge   flexInt `json:"job_age"`
}

type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		*f = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("job_age must be a number of days")
	}
	*f = flexInt(n)
	return nil
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req := jobs.Request{
		JobTitle:   body.JobTitle,
		City:       body.City,
		Country:    body.Country,
		MaxAgeDays: int(body.JobAge),
	}
	rep, err := s.searcher.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rep.Records); err != nil {
		s.logger.Error("render csv failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render results failed")
		return
	}
	filename := export.Filename(rep.Query.Title, s.now())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("X-Search-ID", rep.SearchID)
	w.Header().Set("X-Search-Fallback", strconv.FormatBool(rep.FallbackUsed))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("write csv response failed", zap.Error(err))
	}
}

func (s *Server) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
