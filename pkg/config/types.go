package config

import "time"

// Config is the root configuration structure
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Feed     FeedConfig     `yaml:"feed"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig configures the collect/sign/aggregate run
type PipelineConfig struct {
	Workers       int      `yaml:"workers"`        // Number of concurrent workers (default: 5)
	Ticks         int      `yaml:"ticks"`          // Ticks per worker, overridden by --times
	Interval      Duration `yaml:"interval"`       // Delay after each tick (default: 1s)
	ChannelSize   int      `yaml:"channel_size"`   // Delivery channel buffer (default: 32)
	AggregateMode string   `yaml:"aggregate_mode"` // "average" or "median"
}

// FeedConfig configures the market data connector
type FeedConfig struct {
	URL              string   `yaml:"url"`    // Base websocket URL, e.g. wss://stream.binance.com:9443/ws
	Symbol           string   `yaml:"symbol"` // Binance symbol, e.g. btcusdt
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	ReadTimeout      Duration `yaml:"read_timeout"`
}

// CacheConfig configures where collected results are written
type CacheConfig struct {
	Backend string `yaml:"backend"` // "file" or "pebble"
	Dir     string `yaml:"dir"`
	Name    string `yaml:"name"`   // Base name of the cache file or pebble directory
	Layout  string `yaml:"layout"` // "per_worker" or "shared" (file backend only)
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
