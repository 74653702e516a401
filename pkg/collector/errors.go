// Package collector pulls ticks from a feed stream and reduces them to a mean.
package collector

import "errors"

var (
	// ErrConnection indicates that the feed could not be reached or ended before enough ticks arrived.
	ErrConnection = errors.New("connection error")
	// ErrEmptySample indicates that a mean was requested over zero ticks.
	ErrEmptySample = errors.New("empty sample")
)
