// Package config provides configuration loading and validation for price-attest.
package config

import "errors"

var (
	// ErrInvalidWorkers indicates that the worker count is not positive.
	ErrInvalidWorkers = errors.New("pipeline.workers must be > 0")
	// ErrInvalidTicks indicates that the tick count is negative.
	ErrInvalidTicks = errors.New("pipeline.ticks must be >= 0")
	// ErrInvalidInterval indicates that the inter-tick interval is negative.
	ErrInvalidInterval = errors.New("pipeline.interval must be >= 0")
	// ErrInvalidAggregateMode indicates that the aggregation mode is invalid.
	ErrInvalidAggregateMode = errors.New("invalid aggregate_mode")
	// ErrFeedURLRequired indicates that feed.url must be specified.
	ErrFeedURLRequired = errors.New("feed.url must be specified")
	// ErrFeedSymbolRequired indicates that feed.symbol must be specified.
	ErrFeedSymbolRequired = errors.New("feed.symbol must be specified")
	// ErrInvalidCacheBackend indicates that the cache backend is invalid.
	ErrInvalidCacheBackend = errors.New("invalid cache.backend")
	// ErrInvalidCacheLayout indicates that the cache layout is invalid.
	ErrInvalidCacheLayout = errors.New("invalid cache.layout")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
