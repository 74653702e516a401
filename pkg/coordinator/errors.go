// Package coordinator fans worker tasks out and their signed contributions into the aggregator.
package coordinator

import "errors"

var (
	// ErrInvalidConfig indicates a worker count or tick count that is not positive.
	ErrInvalidConfig = errors.New("invalid coordinator config")
	// ErrWorkerPanic indicates that a worker task panicked.
	ErrWorkerPanic = errors.New("worker panicked")
	// ErrDuplicateWorker indicates a worker id registered twice.
	ErrDuplicateWorker = errors.New("duplicate worker id")
)
