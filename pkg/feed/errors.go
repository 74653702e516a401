// Package feed defines the market data connector used by workers and its Binance implementation.
package feed

import "errors"

var (
	// ErrStreamClosed indicates that the stream ended before the requested tick.
	ErrStreamClosed = errors.New("stream closed")
	// ErrConnect indicates that a subscription could not be established.
	ErrConnect = errors.New("failed to connect to market data stream")
	// ErrSymbolRequired indicates that no symbol was configured.
	ErrSymbolRequired = errors.New("symbol is required")
)
