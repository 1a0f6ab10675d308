// Package cache provides the caching layer under the depview pipeline.
//
// Three kinds of values are cached, each under its own key type:
//   - graph: the raw graph.json of a backend, short-lived and dropped after
//     every edge mutation
//   - layout: a layout result, addressed by the hash of the description and
//     the layout options
//   - artifact: a rendered output, addressed by the hash of the layout and the
//     output format
//
// Backends: [NullCache] (disabled), [FileCache] (CLI, under the XDG cache
// directory) and [RedisCache] (shared by server replicas).
package cache

import (
	"context"
	"time"
)

// Key types reported to observability hooks.
const (
	KeyTypeGraph    = "graph"
	KeyTypeLayout   = "layout"
	KeyTypeArtifact = "artifact"
)

// TTLs per key type.
const (
	TTLGraph    = 5 * time.Minute
	TTLLayout   = 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Cache stores opaque byte values with an optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
