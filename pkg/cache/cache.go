// Package cache provides content-addressed caching for conversion results.
//
// Converting an AST is cheap, but rendering a tree through Graphviz and
// compiling source through the external compiler are not. The pipeline
// caches both the converted tree and the rendered artifacts under keys
// derived from the input bytes and the options that influence the output.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [MemoryCache]: bounded LRU in process memory for a single server
//   - [RedisCache]: shared cache for several server instances
//   - [NullCache]: caching disabled
//
// # Keys
//
// Keys are built by a [Keyer] so that callers never assemble key strings by
// hand. [ScopedKeyer] prefixes every key for namespace isolation, for example
// to keep trees built with different unknown-variant policies apart from a
// shared Redis instance used by several deployments.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional expiry.
//
// Implementations must be safe for concurrent use. A miss is reported as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default lifetimes for cached values.
const (
	// TTLTree is the lifetime of a converted tree. Trees are a pure function
	// of the input bytes, so they only expire to bound cache size.
	TTLTree = 7 * 24 * time.Hour

	// TTLArtifact is the lifetime of a rendered artifact (SVG, PNG, DOT).
	TTLArtifact = 24 * time.Hour

	// TTLCompile is the lifetime of a compiler result for a given source.
	TTLCompile = 24 * time.Hour
)
