package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Scanner     ScannerConfig    `toml:"scanner"`
	Enrichment  EnrichmentConfig `toml:"enrichment"`
	Queue       QueueConfig      `toml:"queue"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host" validate:"required"`
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// ScannerConfig controls the scan cycle: lock lifetime, fan-out width and the
// change detector's noise filters. The lock TTL must exceed the cycle timeout
// so a slow cycle releases its own lock instead of losing it mid-flight.
type ScannerConfig struct {
	LockTTL          string `toml:"lock_ttl"`           // e.g. "10m" - scan lock expiry
	CycleTimeout     string `toml:"cycle_timeout"`      // e.g. "9m" - wall-clock deadline for one cycle
	Concurrency      int    `toml:"concurrency" validate:"gt=0"`
	MinContentLength int    `toml:"min_content_length"` // Summaries shorter than this are noise
	NoUpdateSentinel string `toml:"no_update_sentinel"` // Provider's "nothing new" marker text
}

// EnrichmentConfig controls the external search provider calling discipline.
type EnrichmentConfig struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Timeout        string  `toml:"timeout"`         // Per-request timeout, e.g. "60s"
	MaxAttempts    int     `toml:"max_attempts"`    // Retry cap including the first attempt
	InitialBackoff string  `toml:"initial_backoff"` // Doubled after each failed attempt
	RatePerSecond  float64 `toml:"rate_per_second"` // Provider rate ceiling (token bucket)
	Burst          int     `toml:"burst"`
	MaxConcurrent  int     `toml:"max_concurrent"`   // Semaphore width for in-flight calls
	MaxWebSearches int     `toml:"max_web_searches"` // Server-side web searches per call
}

type QueueConfig struct {
	Reclaim ReclaimConfig `toml:"reclaim"`
}

// ReclaimConfig controls the sweep that returns tasks stranded in a
// processing queue by a crashed consumer back to pending.
type ReclaimConfig struct {
	Enabled    bool   `toml:"enabled"`
	Interval   string `toml:"interval"`    // Cron spec or "@every ..." form
	StaleAfter string `toml:"stale_after"` // How long a task may sit in processing
}

// SchedulerConfig controls the optional internal cron trigger. Disabled by
// default: the HTTP trigger endpoint remains the contract surface for
// external schedulers.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron spec for the scan cycle
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// NewDefaultConfig returns the built-in defaults, before any file or
// environment overrides.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/trade-monitor",
				ResetOnStartup: false,
			},
		},
		Scanner: ScannerConfig{
			LockTTL:          "10m",
			CycleTimeout:     "9m",
			Concurrency:      10,
			MinContentLength: 80,
			NoUpdateSentinel: "NO_UPDATES_FOUND",
		},
		Enrichment: EnrichmentConfig{
			Model:          "claude-sonnet-4-20250514",
			Timeout:        "60s",
			MaxAttempts:    3,
			InitialBackoff: "2s",
			RatePerSecond:  1,
			Burst:          2,
			MaxConcurrent:  5,
			MaxWebSearches: 3,
		},
		Queue: QueueConfig{
			Reclaim: ReclaimConfig{
				Enabled:    true,
				Interval:   "@every 1m",
				StaleAfter: "10m",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "@every 30m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MONITOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("MONITOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MONITOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("MONITOR_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if concurrency := os.Getenv("MONITOR_SCANNER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Scanner.Concurrency = c
		}
	}

	// API key resolution order: MONITOR_ANTHROPIC_API_KEY -> ANTHROPIC_API_KEY -> config file
	if key := os.Getenv("MONITOR_ANTHROPIC_API_KEY"); key != "" {
		config.Enrichment.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Enrichment.APIKey = key
	}

	if level := os.Getenv("MONITOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct tags, duration fields, and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lockTTL, err := c.Scanner.LockTTLDuration()
	if err != nil {
		return err
	}
	cycleTimeout, err := c.Scanner.CycleTimeoutDuration()
	if err != nil {
		return err
	}
	if cycleTimeout >= lockTTL {
		return fmt.Errorf("scanner.cycle_timeout (%s) must be shorter than scanner.lock_ttl (%s)", cycleTimeout, lockTTL)
	}

	if _, err := c.Enrichment.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Enrichment.InitialBackoffDuration(); err != nil {
		return err
	}
	if _, err := c.Queue.Reclaim.StaleAfterDuration(); err != nil {
		return err
	}

	if c.Queue.Reclaim.Enabled {
		if err := validateCronSpec(c.Queue.Reclaim.Interval); err != nil {
			return fmt.Errorf("invalid queue.reclaim.interval: %w", err)
		}
	}
	if c.Scheduler.Enabled {
		if err := validateCronSpec(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler.schedule: %w", err)
		}
	}

	return nil
}

func validateCronSpec(spec string) error {
	if spec == "" {
		return fmt.Errorf("schedule is empty")
	}
	_, err := cron.ParseStandard(spec)
	return err
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s duration must be positive, got %q", name, value)
	}
	return d, nil
}

// LockTTLDuration parses the scan lock TTL.
func (s *ScannerConfig) LockTTLDuration() (time.Duration, error) {
	return parseDuration("scanner.lock_ttl", s.LockTTL)
}

// CycleTimeoutDuration parses the cycle wall-clock deadline.
func (s *ScannerConfig) CycleTimeoutDuration() (time.Duration, error) {
	return parseDuration("scanner.cycle_timeout", s.CycleTimeout)
}

// TimeoutDuration parses the per-request enrichment timeout.
func (e *EnrichmentConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("enrichment.timeout", e.Timeout)
}

// InitialBackoffDuration parses the first retry delay.
func (e *EnrichmentConfig) InitialBackoffDuration() (time.Duration, error) {
	return parseDuration("enrichment.initial_backoff", e.InitialBackoff)
}

// StaleAfterDuration parses the processing-queue staleness threshold.
func (r *ReclaimConfig) StaleAfterDuration() (time.Duration, error) {
	return parseDuration("queue.reclaim.stale_after", r.StaleAfter)
}
