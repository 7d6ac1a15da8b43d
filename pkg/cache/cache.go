// Package cache provides pluggable response caching for registry and
// VCS metadata lookups.
//
// Backends implement the Cache interface:
//   - FileCache: file-per-entry storage for CLI usage
//   - RedisCache: shared cache for multi-instance server deployments
//   - MongoCache: TTL-indexed collection for server deployments
//   - NullCache: no-op cache for tests or --refresh runs
//
// Entries are opaque byte slices with an optional TTL; callers are
// responsible for serialization.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL-aware key/value store.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
