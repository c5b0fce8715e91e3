package tagcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The registry calls them on hot paths.
type Hooks interface {
	// A producer failed but a previous value existed and was served instead.
	StaleServed(key string, generation uint64, err error)

	// A producer failed and there was nothing to fall back to.
	ComputeFailed(key string, err error)

	// An entry was (re)computed and committed.
	// reason ∈ {"miss", "expired", "invalidated", "unreadable"}
	Recomputed(key string, generation uint64, reason string, took time.Duration)

	// InvalidateTag marked count entries.
	TagInvalidated(tag string, count int)

	// A stored value was deleted by the registry on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// Provider returned an error on Get/Set/Del.
	ProviderError(op, storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StaleServed(string, uint64, error)                {}
func (NopHooks) ComputeFailed(string, error)                      {}
func (NopHooks) Recomputed(string, uint64, string, time.Duration) {}
func (NopHooks) TagInvalidated(string, int)                       {}
func (NopHooks) SelfHeal(string, string)                          {}
func (NopHooks) ProviderSetRejected(string)                       {}
func (NopHooks) ProviderError(string, string, error)              {}
