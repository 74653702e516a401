// Package aggregator verifies signed contributions and reduces the trusted ones to a single price.
package aggregator

import "errors"

var (
	// ErrVerificationFailed marks a contribution whose signature did not verify.
	// Such contributions are dropped, not returned.
	ErrVerificationFailed = errors.New("signature verification failed")
	// ErrNoTrustedContributions indicates that no contribution verified.
	ErrNoTrustedContributions = errors.New("no trusted contributions")
	// ErrUnknownWorker indicates a contribution from a worker id missing from the registry.
	ErrUnknownWorker = errors.New("unknown worker")
	// ErrAlreadyRun indicates that Run was called on an aggregator that has already run.
	ErrAlreadyRun = errors.New("aggregator already run")
	// ErrUnknownMode indicates that the aggregation mode is unknown.
	ErrUnknownMode = errors.New("unknown aggregation mode")
)
