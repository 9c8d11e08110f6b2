// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides (JOBSEARCH_SERVER_PORT, ...).
const EnvPrefix = "JOBSEARCH"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Search      SearchConfig      `mapstructure:"search"`
	Engine      EngineConfig      `mapstructure:"engine"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Headless    HeadlessConfig    `mapstructure:"headless"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
	Progress    ProgressConfig    `mapstructure:"progress"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Credentials map[string]string `mapstructure:"credentials"`
	Portals     []PortalConfig    `mapstructure:"portals"`
	Fallback    FallbackConfig    `mapstructure:"fallback"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SearchConfig holds request defaults.
type SearchConfig struct {
	DefaultMaxAgeDays int `mapstructure:"default_max_age_days"`
}

// EngineConfig governs dispatch and courtesy behavior.
type EngineConfig struct {
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	CourtesyRPS    float64 `mapstructure:"courtesy_rps"`
	CourtesyBurst  int     `mapstructure:"courtesy_burst"`
	BackoffInitMs  int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs   int     `mapstructure:"backoff_max_ms"`
}

// HTTPConfig configures outbound fetches.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the browser rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	WaitTimeoutSec  int  `mapstructure:"wait_timeout_seconds"`
	ScrollSteps     int  `mapstructure:"scroll_steps"`
	ScrollDelayMs   int  `mapstructure:"scroll_delay_ms"`
	Stealth         bool `mapstructure:"stealth"`
	DetectorMinBody int  `mapstructure:"detector_min_body"`
}

// PubSubConfig holds metadata for publishing search events.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ProgressConfig tunes the observability hub.
type ProgressConfig struct {
	BufferSize    int `mapstructure:"buffer_size"`
	BatchSize     int `mapstructure:"batch_size"`
	FlushInterval int `mapstructure:"flush_interval_ms"`
}

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveLocal  = "local"
	ArchiveMemory = "memory"
	ArchiveGCS    = "gcs"
)

// ArchiveConfig selects where search exports are copied after each search.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	// TimeoutSeconds bounds one upload.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-upload budget.
func (a ArchiveConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PortalConfig declares one registry entry.
type PortalConfig struct {
	// Name is the source identifier carried by every record.
	Name      string `mapstructure:"name"`
	Technique string `mapstructure:"technique"`
	// Profile selects the built-in schema or page profile; defaults to Name.
	Profile        string `mapstructure:"profile"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxResults     int    `mapstructure:"max_results"`
	Enabled        *bool  `mapstructure:"enabled"`
	Priority       int    `mapstructure:"priority"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
}

// IsEnabled treats an omitted enabled flag as true.
func (p PortalConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// ProfileName returns Profile or Name.
func (p PortalConfig) ProfileName() string {
	if p.Profile != "" {
		return p.Profile
	}
	return p.Name
}

// Timeout returns the per-attempt budget.
func (p PortalConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// FallbackConfig lists the portals used for search-link fallback records.
type FallbackConfig struct {
	Portals []string `mapstructure:"portals"`
}

// Load builds a Config from an optional .env file, the config file, and the
// environment.
func Load(path string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is the platform convention on Cloud Run and Render.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv reads JOBSEARCH_ENV_FILE (or ./.env) without overriding
// variables already set. A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// credentialKeys are pre-registered so JOBSEARCH_CREDENTIALS_* variables bind.
var credentialKeys = []string{"adzuna_app_id", "adzuna_app_key", "rapidapi_key"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("search.default_max_age_days", 15)
	v.SetDefault("engine.max_concurrency", 4)
	v.SetDefault("engine.courtesy_rps", 1.0)
	v.SetDefault("engine.courtesy_burst", 1)
	v.SetDefault("engine.backoff_initial_ms", 250)
	v.SetDefault("engine.backoff_max_ms", 2000)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.wait_timeout_seconds", 10)
	v.SetDefault("headless.scroll_steps", 3)
	v.SetDefault("headless.scroll_delay_ms", 750)
	v.SetDefault("headless.stealth", true)
	v.SetDefault("headless.detector_min_body", 2048)
	v.SetDefault("progress.buffer_size", 256)
	v.SetDefault("progress.batch_size", 32)
	v.SetDefault("progress.flush_interval_ms", 500)
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.base_dir", "exports")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "searches")
	v.SetDefault("archive.timeout_seconds", 30)
	for _, key := range credentialKeys {
		v.SetDefault("credentials."+key, "")
	}
	v.SetDefault("portals", DefaultPortals())
	v.SetDefault("fallback.portals", []string{"linkedin", "indeed", "glassdoor", "google_jobs"})
}

// DefaultPortals is the registry used when no portals are configured.
// Entries missing credentials are skipped when the registry is built.
func DefaultPortals() []map[string]any {
	return []map[string]any{
		{"name": "remotive", "technique": "api", "timeout_seconds": 10, "max_results": 50, "priority": 1, "max_attempts": 2},
		{"name": "adzuna", "technique": "api", "timeout_seconds": 10, "max_results": 50, "priority": 1, "max_attempts": 2},
		{"name": "jsearch", "technique": "api", "timeout_seconds": 15, "max_results": 50, "priority": 1, "max_attempts": 2},
		{"name": "indeed", "technique": "html", "timeout_seconds": 20, "max_results": 50, "priority": 2, "max_attempts": 1},
		{"name": "linkedin", "technique": "html", "timeout_seconds": 20, "max_results": 50, "priority": 2, "max_attempts": 2},
		{"name": "glassdoor", "technique": "browser", "timeout_seconds": 45, "max_results": 30, "priority": 3, "max_attempts": 1},
		{"name": "google_jobs", "technique": "browser", "timeout_seconds": 45, "max_results": 30, "priority": 3, "max_attempts": 1},
	}
}

var techniques = map[string]bool{"api": true, "html": true, "browser": true, "links": true}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("engine.max_concurrency must be > 0")
	}
	if c.Engine.CourtesyRPS < 0 {
		return fmt.Errorf("engine.courtesy_rps must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if (c.PubSub.TopicName == "") != (c.PubSub.ProjectID == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.Archive.TimeoutSeconds < 0 {
		return fmt.Errorf("archive.timeout_seconds must be >= 0")
	}
	switch c.Archive.Backend {
	case "", ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local backend")
		}
	case ArchiveGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not one of none, local, memory, gcs", c.Archive.Backend)
	}
	seen := make(map[string]bool, len(c.Portals))
	for i, p := range c.Portals {
		if p.Name == "" {
			return fmt.Errorf("portals[%d].name is required", i)
		}
		key := p.Name + "/" + p.Technique
		if seen[key] {
			return fmt.Errorf("portals[%d]: duplicate %s entry for portal %q", i, p.Technique, p.Name)
		}
		seen[key] = true
		if !techniques[p.Technique] {
			return fmt.Errorf("portals[%d] (%s): unknown technique %q", i, p.Name, p.Technique)
		}
		if p.TimeoutSeconds <= 0 {
			return fmt.Errorf("portals[%d] (%s): timeout_seconds must be > 0", i, p.Name)
		}
		if p.MaxResults < 0 || p.MaxAttempts < 0 {
			return fmt.Errorf("portals[%d] (%s): max_results and max_attempts must be >= 0", i, p.Name)
		}
	}
	return nil
}

// RequestTimeout bounds one HTTP search request end to end.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
