// Package provider defines the value storage abstraction used by tagcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed.
//
// The registry decides freshness from its own metadata and always stores
// values with ttl=0 ("no expiry") so a stale value remains available as a
// fallback when recomputation fails. Providers that evict on their own
// (Ristretto, BigCache) weaken that fallback.
//
// Important: the keyspace "entry:<ns>:" is owned by tagcache. External code
// MUST NOT write values under this prefix; foreign bytes fail wire
// validation and are deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (ttl<=0 => no expiry). May ignore
	// cost if unsupported. Returns ok=false when the store rejected the write
	// under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
