package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkers is the number of workers spawned when none is configured.
	DefaultWorkers = 5
	// DefaultFeedURL is the Binance raw stream endpoint.
	DefaultFeedURL = "wss://stream.binance.com:9443/ws"
	// DefaultSymbol is the traded pair collected by default.
	DefaultSymbol = "btcusdt"
	// DefaultCacheName is the base name of the cache file.
	DefaultCacheName = "btc_price_data"
)

// Cache backends and layouts.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"

	LayoutPerWorker = "per_worker"
	LayoutShared    = "shared"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for optional fields and lowercases
// enumerated values so later consumers compare them exactly.
func applyDefaults(cfg *Config) {
	cfg.Pipeline.AggregateMode = strings.ToLower(strings.TrimSpace(cfg.Pipeline.AggregateMode))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.Cache.Layout = strings.ToLower(strings.TrimSpace(cfg.Cache.Layout))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))

	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = DefaultWorkers
	}
	if cfg.Pipeline.Interval == 0 {
		cfg.Pipeline.Interval = Duration(time.Second)
	}
	if cfg.Pipeline.ChannelSize == 0 {
		cfg.Pipeline.ChannelSize = 32
	}
	if cfg.Pipeline.AggregateMode == "" {
		cfg.Pipeline.AggregateMode = "average"
	}

	if cfg.Feed.URL == "" {
		cfg.Feed.URL = DefaultFeedURL
	}
	if cfg.Feed.Symbol == "" {
		cfg.Feed.Symbol = DefaultSymbol
	}
	if cfg.Feed.HandshakeTimeout == 0 {
		cfg.Feed.HandshakeTimeout = Duration(10 * time.Second)
	}
	if cfg.Feed.ReadTimeout == 0 {
		cfg.Feed.ReadTimeout = Duration(60 * time.Second)
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendFile
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "."
	}
	if cfg.Cache.Name == "" {
		cfg.Cache.Name = DefaultCacheName
	}
	if cfg.Cache.Layout == "" {
		cfg.Cache.Layout = LayoutPerWorker
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := validatePipelineConfig(&cfg.Pipeline); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if err := validateFeedConfig(&cfg.Feed); err != nil {
		return fmt.Errorf("feed config: %w", err)
	}
	if err := validateCacheConfig(&cfg.Cache); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func validatePipelineConfig(cfg *PipelineConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidWorkers, cfg.Workers)
	}
	if cfg.Ticks < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidTicks, cfg.Ticks)
	}
	if cfg.Interval < 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidInterval, cfg.Interval.ToDuration())
	}

	if cfg.AggregateMode != "average" && cfg.AggregateMode != "median" {
		return fmt.Errorf("%w: %s (must be 'average' or 'median')", ErrInvalidAggregateMode, cfg.AggregateMode)
	}

	return nil
}

func validateFeedConfig(cfg *FeedConfig) error {
	if cfg.URL == "" {
		return ErrFeedURLRequired
	}
	if cfg.Symbol == "" {
		return ErrFeedSymbolRequired
	}
	return nil
}

func validateCacheConfig(cfg *CacheConfig) error {
	if cfg.Backend != BackendFile && cfg.Backend != BackendPebble {
		return fmt.Errorf("%w: %s (must be 'file' or 'pebble')", ErrInvalidCacheBackend, cfg.Backend)
	}

	if cfg.Layout != LayoutPerWorker && cfg.Layout != LayoutShared {
		return fmt.Errorf("%w: %s (must be 'per_worker' or 'shared')", ErrInvalidCacheLayout, cfg.Layout)
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if cfg.Level == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	formatValid := cfg.Format == "json" || cfg.Format == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
