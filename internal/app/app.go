// Package app builds and owns the long-lived services: logger, progress hub,
// fetchers, registry, engine, export archive and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/api"
	"github.com/JakeFAU/jobsearch-aggregator/internal/clock/system"
	"github.com/JakeFAU/jobsearch-aggregator/internal/config"
	"github.com/JakeFAU/jobsearch-aggregator/internal/engine"
	collyfetcher "github.com/JakeFAU/jobsearch-aggregator/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/jobsearch-aggregator/internal/fetcher/headless"
	"github.com/JakeFAU/jobsearch-aggregator/internal/headless/detector"
	"github.com/JakeFAU/jobsearch-aggregator/internal/id/uuid"
	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
	"github.com/JakeFAU/jobsearch-aggregator/internal/logging"
	"github.com/JakeFAU/jobsearch-aggregator/internal/metrics"
	"github.com/JakeFAU/jobsearch-aggregator/internal/normalize"
	"github.com/JakeFAU/jobsearch-aggregator/internal/policy/ratelimit"
	"github.com/JakeFAU/jobsearch-aggregator/internal/policy/retry"
	"github.com/JakeFAU/jobsearch-aggregator/internal/progress"
	progresssinks "github.com/JakeFAU/jobsearch-aggregator/internal/progress/sinks"
	gcppublisher "github.com/JakeFAU/jobsearch-aggregator/internal/publisher/pubsub"
	"github.com/JakeFAU/jobsearch-aggregator/internal/registry"
	"github.com/JakeFAU/jobsearch-aggregator/internal/storage"
	gcsstore "github.com/JakeFAU/jobsearch-aggregator/internal/storage/gcs"
	localstore "github.com/JakeFAU/jobsearch-aggregator/internal/storage/local"
	memorystore "github.com/JakeFAU/jobsearch-aggregator/internal/storage/memory"
	"github.com/JakeFAU/jobsearch-aggregator/internal/strategy/links"
)

const shutdownTimeout = 10 * time.Second

type closer interface {
	Close() error
}

// App holds the services built from one Config.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     jobs.Clock
	hub       *progress.Hub
	publisher closer
	renderer  *headlessfetcher.Fetcher
	archive   closer
	searcher  storage.Searcher
	registry  *registry.Registry
	engine    *engine.Engine
	apiServer *api.Server
}

// Options customize Build.
type Options struct {
	// Logger replaces the logger built from cfg.Logging.
	Logger *zap.Logger
	// Registerer receives the progress collectors; defaults to the global
	// Prometheus registerer.
	Registerer prometheus.Registerer
	// Clock overrides the wall clock, e.g. to replay a search as of a date.
	Clock jobs.Clock
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = system.New()
	}
	a := &App{cfg: cfg, logger: logger, clock: clock}
	a.logger.Info("building application",
		zap.Int("server_port", cfg.Server.Port),
		zap.Int("portals", len(cfg.Portals)),
		zap.Bool("headless", cfg.Headless.Enabled),
		logging.Secret("adzuna_app_key", cfg.Credentials["adzuna_app_key"]),
		logging.Secret("rapidapi_key", cfg.Credentials["rapidapi_key"]),
	)
	metrics.Init()

	emitter, err := a.setupProgress(ctx, opts.Registerer)
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, err
	}
	reg, err := a.setupRegistry()
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, err
	}
	a.registry = reg

	fallback, err := links.NewFallback(cfg.Fallback.Portals, clock)
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, fmt.Errorf("link fallback init failed: %w", err)
	}
	a.engine, err = engine.New(engine.Config{
		MaxConcurrency:    cfg.Engine.MaxConcurrency,
		DefaultMaxAgeDays: cfg.Search.DefaultMaxAgeDays,
	}, engine.Deps{
		Registry:   reg,
		Fallback:   fallback,
		Normalizer: normalize.New(clock),
		Courtesy: ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Engine.CourtesyRPS,
			DefaultBurst: cfg.Engine.CourtesyBurst,
		}),
		Retry: retry.NewExponential(
			time.Duration(cfg.Engine.BackoffInitMs)*time.Millisecond,
			time.Duration(cfg.Engine.BackoffMaxMs)*time.Millisecond,
		),
		Emitter: emitter,
		IDs:     uuid.New(),
		Clock:   clock,
		Logger:  logger.Named("engine"),
	})
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, fmt.Errorf("engine init failed: %w", err)
	}

	a.searcher, err = a.setupArchive(ctx, a.engine)
	if err != nil {
		a.closeInfrastructure(ctx)
		return nil, err
	}

	a.apiServer = api.NewServer(a.searcher, clock, cfg, logger.Named("api"), a.Ready)
	return a, nil
}

func (a *App) setupProgress(ctx context.Context, reg prometheus.Registerer) (progress.Emitter, error) {
	promSink, err := progresssinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, fmt.Errorf("progress metrics init failed: %w", err)
	}
	sinkList := []progress.Sink{
		promSink,
		progresssinks.NewLogSink(a.logger.Named("progress_log")),
	}
	if a.cfg.PubSub.TopicName != "" && a.cfg.PubSub.ProjectID != "" {
		pub, err := gcppublisher.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		a.publisher = pub
		pubSink, err := progresssinks.NewPublisherSink(pub, "search_progress")
		if err != nil {
			return nil, fmt.Errorf("publisher sink init failed: %w", err)
		}
		sinkList = append(sinkList, pubSink)
		a.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", a.cfg.PubSub.ProjectID),
			zap.String("topic", a.cfg.PubSub.TopicName),
		)
	}
	hubCfg := progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.BatchSize,
		MaxBatchWait:   time.Duration(a.cfg.Progress.FlushInterval) * time.Millisecond,
		Logger:         a.logger.Named("progress_hub"),
	}
	a.hub = progress.NewHub(hubCfg, sinkList...)
	a.logger.Info("progress hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
	)
	return a.hub, nil
}

func (a *App) setupArchive(ctx context.Context, next storage.Searcher) (storage.Searcher, error) {
	var store storage.BlobStore
	switch a.cfg.Archive.Backend {
	case "", config.ArchiveNone:
		return next, nil
	case config.ArchiveMemory:
		store = memorystore.NewBlobStore()
	case config.ArchiveLocal:
		s, err := localstore.New(localstore.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local archive init failed: %w", err)
		}
		store = s
	case config.ArchiveGCS:
		s, err := gcsstore.Dial(ctx, gcsstore.Config{Bucket: a.cfg.Archive.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs archive init failed: %w", err)
		}
		a.archive = s
		store = s
	default:
		return nil, fmt.Errorf("unknown archive backend %q", a.cfg.Archive.Backend)
	}
	archiver, err := storage.NewArchiver(next, store, storage.Config{
		Prefix:  a.cfg.Archive.Prefix,
		Timeout: a.cfg.Archive.Timeout(),
	}, a.clock, a.logger.Named("archive"))
	if err != nil {
		return nil, fmt.Errorf("archiver init failed: %w", err)
	}
	a.logger.Info("export archive enabled",
		zap.String("backend", a.cfg.Archive.Backend),
		zap.String("prefix", a.cfg.Archive.Prefix),
		zap.Duration("timeout", a.cfg.Archive.Timeout()),
	)
	return archiver, nil
}

func (a *App) setupRegistry() (*registry.Registry, error) {
	timeout := time.Duration(a.cfg.HTTP.TimeoutSeconds) * time.Second
	deps := registry.Deps{
		Fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.HTTP.UserAgent,
			RespectRobots: a.cfg.HTTP.RespectRobots,
			Timeout:       timeout,
		}),
		Detector:   detector.NewHeuristic(a.cfg.Headless.DetectorMinBody),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     a.logger,
	}
	if a.cfg.Headless.Enabled {
		renderer, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.HTTP.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
			WaitTimeout:       time.Duration(a.cfg.Headless.WaitTimeoutSec) * time.Second,
			ScrollDelay:       time.Duration(a.cfg.Headless.ScrollDelayMs) * time.Millisecond,
			Stealth:           a.cfg.Headless.Stealth,
		})
		if err != nil {
			a.logger.Warn("headless renderer init failed, browser portals disabled", zap.Error(err))
		} else {
			a.renderer = renderer
			deps.Renderer = renderer
			a.logger.Info("using headless renderer", zap.Int("max_parallel", a.cfg.Headless.MaxParallel))
		}
	}
	reg, err := registry.Build(a.cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("registry init failed: %w", err)
	}
	return reg, nil
}

// Engine returns the search engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Search runs one search through the engine and the export archive.
func (a *App) Search(ctx context.Context, req jobs.Request) (engine.Report, error) {
	rep, err := a.searcher.Run(ctx, req)
	if err != nil {
		return engine.Report{}, fmt.Errorf("search: %w", err)
	}
	return rep, nil
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Clock returns the clock shared by the engine and the API.
func (a *App) Clock() jobs.Clock {
	return a.clock
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Ready reports an error when no portal is enabled. The link fallback still
// answers searches, but an operator should know live sources are gone.
func (a *App) Ready(context.Context) error {
	if a.registry == nil {
		return errors.New("registry not built")
	}
	if len(a.registry.Enabled()) == 0 {
		return errors.New("no portals enabled")
	}
	return nil
}

// Run serves HTTP until ctx is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close flushes progress events and releases clients. It is safe to call
// once after Build succeeds.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync() // best-effort flush
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("archive close failed", zap.Error(err))
		}
	}
}
