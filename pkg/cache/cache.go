// Package cache stores assembled graphs and rendered artifacts.
//
// Recomputing a diagram is cheap, but rendering through graphviz is not,
// and the HTTP API serves the same few workflows over and over. Every
// pipeline stage output is keyed by a content hash of its inputs, so a
// changed workflow file or layout option can never return a stale entry.
//
// # Backends
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one file per entry under a directory (CLI)
//   - [RedisCache]: shared cache for server deployments
//
// # Keys
//
// A [Keyer] derives keys from content hashes and options. [ScopedKeyer]
// prefixes every key to isolate tenants or environments sharing a backend.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs.
const (
	// GraphTTL bounds how long an assembled graph is reused.
	GraphTTL = 24 * time.Hour

	// ArtifactTTL bounds how long a rendered artifact is reused.
	ArtifactTTL = 7 * 24 * time.Hour
)
