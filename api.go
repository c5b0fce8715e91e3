package tagcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/tagcache/codec"
	pr "github.com/unkn0wn-root/tagcache/provider"
)

// NoExpiration disables time-based expiry for an entry. Any negative TTL is
// treated the same way.
const NoExpiration time.Duration = -1

type SetCostFunc func(storageKey string, raw []byte) int64

// Producer computes the value for a key. It may block on I/O and may fail.
type Producer[V any] func(ctx context.Context) (V, error)

// Registry is the tag-scoped cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
type Registry[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// GetOrCompute returns the cached value for key when it is fresh, otherwise
	// it runs produce (at most one run per key at a time) and stores the result.
	// tags and ttl are recorded when the key is first registered and are
	// ignored on later calls.
	GetOrCompute(ctx context.Context, key string, tags []string, ttl time.Duration, produce Producer[V]) (V, error)

	// InvalidateTag marks every entry carrying tag as stale and returns how
	// many entries were marked. Recomputation happens on the next read.
	InvalidateTag(ctx context.Context, tag string) (int, error)

	// Introspection
	Entry(key string) (EntryInfo, bool)
	Len() int
	Stats() Stats

	// Reset drops every entry and its stored value.
	Reset(ctx context.Context) error
}

// EntryInfo is a point-in-time copy of an entry's metadata.
type EntryInfo struct {
	Key         string
	Tags        []string
	TTL         time.Duration // NoExpiration => cached until invalidated
	ComputedAt  time.Time
	Generation  uint64
	Invalidated bool
	Expired     bool
}

// Stale reports whether the next read of this entry will recompute it.
func (e EntryInfo) Stale() bool { return e.Invalidated || e.Expired }

// Options tune the behavior of the registry.
// Only Namespace and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "time", "page"
	Codec     c.Codec[V]

	Provider       pr.Provider      // nil => provider/memory
	Logger         Logger           // nil => NopLogger
	Hooks          Hooks            // nil => NopHooks
	Disabled       bool             // default false (enabled)
	ComputeSetCost SetCostFunc      // default 1
	Now            func() time.Time // default time.Now
}

func New[V any](opts Options[V]) (Registry[V], error) {
	r, err := newRegistry[V](opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}
