// Package cache persists collected means and raw samples for offline inspection.
package cache

import "errors"

var (
	// ErrNotFound indicates that no record exists for the key.
	ErrNotFound = errors.New("cache record not found")
	// ErrCorruptRecord indicates that a stored record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt cache record")
	// ErrInvalidKey indicates an unknown record key.
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrUnknownLayout indicates an unsupported file layout.
	ErrUnknownLayout = errors.New("unknown cache layout")
	// ErrReadOnly indicates a write to a store opened read-only.
	ErrReadOnly = errors.New("cache opened read-only")
	// ErrUnknownBackend indicates an unsupported backend.
	ErrUnknownBackend = errors.New("unknown cache backend")
)
