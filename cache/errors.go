package cache

import "errors"

// Store errors. Storage failures are fatal and must never be treated as a
// cache miss: a miss triggers live discovery, and conflating the two would
// defeat the discovery guardrails.
var (
	// ErrNotFound is returned when a key is absent or its entry expired.
	ErrNotFound = errors.New("cache entry not found")

	// ErrStorageUnavailable indicates the underlying KV store failed.
	ErrStorageUnavailable = errors.New("cache storage unavailable")

	// ErrInvalidKey indicates the key violates the allowed charset or
	// namespace convention.
	ErrInvalidKey = errors.New("invalid cache key")
)
