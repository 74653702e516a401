// Package signer provides ephemeral ed25519 keys and signatures for worker contributions.
package signer

import "errors"

var (
	// ErrRandomSource indicates that the system random source could not supply a seed.
	ErrRandomSource = errors.New("random source unavailable")
)
