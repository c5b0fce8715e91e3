package tagcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/internal/util"
	"github.com/unkn0wn-root/tagcache/internal/wire"
	pr "github.com/unkn0wn-root/tagcache/provider"
	"github.com/unkn0wn-root/tagcache/provider/memory"
)

type entry struct {
	key        string
	storageKey string
	tags       []string
	ttl        time.Duration

	// guarded by registry.mu
	gen           uint64
	computedAt    time.Time
	invalidated   bool
	invalidations uint64 // bumped on every tag mark; detects marks that race a recompute
}

func (e *entry) info(now time.Time) EntryInfo {
	return EntryInfo{
		Key:         e.key,
		Tags:        append([]string(nil), e.tags...),
		TTL:         e.ttl,
		ComputedAt:  e.computedAt,
		Generation:  e.gen,
		Invalidated: e.invalidated,
		Expired:     Expired(now, e.computedAt, e.ttl),
	}
}

type registry[V any] struct {
	ns             string
	instance       string // guarded by mu; rotated by Reset
	provider       pr.Provider
	codec          c.Codec[V]
	log            Logger
	hooks          Hooks
	enabled        bool
	now            func() time.Time
	computeSetCost SetCostFunc

	mu      sync.RWMutex
	entries map[string]*entry
	byTag   map[string]map[string]*entry // tag -> key -> entry

	flights singleflight.Group
	stats   counters
}

func newRegistry[V any](opts Options[V]) (*registry[V], error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("tagcache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("tagcache: namespace is required")
	}

	r := &registry[V]{
		ns:       opts.Namespace,
		instance: uuid.NewString(),
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
		entries:  make(map[string]*entry),
		byTag:    make(map[string]map[string]*entry),
	}

	// defaults
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Provider != nil {
		r.provider = opts.Provider
	} else {
		r.provider = memory.New()
	}
	if opts.Now != nil {
		r.now = opts.Now
	} else {
		r.now = time.Now
	}
	if opts.ComputeSetCost != nil {
		r.computeSetCost = opts.ComputeSetCost
	} else {
		r.computeSetCost = func(_ string, _ []byte) int64 { return 1 }
	}

	r.log.Debug("registry created", Fields{"ns": r.ns, "instance": r.instance, "enabled": r.enabled})
	return r, nil
}

func (r *registry[V]) Enabled() bool { return r.enabled }

func (r *registry[V]) Close(ctx context.Context) error {
	if r.provider != nil {
		return r.provider.Close(ctx)
	}
	return nil
}

func (r *registry[V]) GetOrCompute(ctx context.Context, key string, tags []string, ttl time.Duration, produce Producer[V]) (V, error) {
	var zero V
	if key == "" {
		return zero, ErrInvalidKey
	}
	if produce == nil {
		return zero, ErrNilProducer
	}
	normTags, ok := util.NormalizeTags(tags)
	if !ok {
		return zero, ErrInvalidTag
	}
	if ttl < 0 {
		ttl = NoExpiration
	}

	if !r.enabled {
		return produce(ctx)
	}

	if v, ok := r.lookupFresh(ctx, key); ok {
		r.stats.hits.Add(1)
		return v, nil
	}

	res, err, shared := r.flights.Do(key, func() (any, error) {
		return r.refresh(ctx, key, normTags, ttl, produce)
	})
	if shared {
		r.stats.sharedFlights.Add(1)
	}
	if err != nil {
		return zero, err
	}
	v, _ := res.(V) // nil interface when V is an interface type and the producer returned nil
	return v, nil
}

func (r *registry[V]) InvalidateTag(_ context.Context, tag string) (int, error) {
	if tag == "" {
		return 0, ErrInvalidTag
	}
	if !r.enabled {
		return 0, nil
	}

	r.mu.Lock()
	members := r.byTag[tag]
	for _, e := range members {
		e.invalidated = true
		e.invalidations++
	}
	count := len(members)
	r.mu.Unlock()

	r.stats.invalidations.Add(1)
	r.stats.entriesMarked.Add(uint64(count))
	r.hooks.TagInvalidated(tag, count)
	r.log.Debug("tag invalidated", Fields{"tag": tag, "count": count})
	return count, nil
}

func (r *registry[V]) Entry(key string) (EntryInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return EntryInfo{}, false
	}
	return e.info(r.now()), true
}

func (r *registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry[V]) Stats() Stats { return r.stats.snapshot() }

// Reset swaps in empty tables and a new instance id, then deletes the old
// entries' stored values. Entries registered after the swap use storage keys
// the delete loop never touches. A recompute of an entry dropped by Reset
// does not re-register it.
func (r *registry[V]) Reset(ctx context.Context) error {
	r.mu.Lock()
	old := r.entries
	r.entries = make(map[string]*entry)
	r.byTag = make(map[string]map[string]*entry)
	r.instance = uuid.NewString()
	r.mu.Unlock()

	var errs []error
	for _, e := range old {
		if err := r.provider.Del(ctx, e.storageKey); err != nil {
			r.hooks.ProviderError("del", e.storageKey, err)
			errs = append(errs, err)
		}
	}
	r.log.Info("registry reset", Fields{"ns": r.ns, "dropped": len(old)})
	if len(errs) > 0 {
		return fmt.Errorf("tagcache: reset: %w", errors.Join(errs...))
	}
	return nil
}

// lookupFresh serves a fresh, non-invalidated entry under the read lock only.
func (r *registry[V]) lookupFresh(ctx context.Context, key string) (V, bool) {
	var zero V
	r.mu.RLock()
	e, ok := r.entries[key]
	var gen uint64
	fresh := false
	if ok {
		gen = e.gen
		fresh = !e.invalidated && !Expired(r.now(), e.computedAt, e.ttl)
	}
	r.mu.RUnlock()
	if !fresh {
		return zero, false
	}
	return r.readValue(ctx, e.storageKey, gen)
}

// refresh runs inside the single flight for key. It re-checks freshness,
// calls the producer and commits the result if the entry was not replaced
// meanwhile.
func (r *registry[V]) refresh(ctx context.Context, key string, tags []string, ttl time.Duration, produce Producer[V]) (V, error) {
	start := r.now()

	r.mu.RLock()
	e := r.entries[key]
	var (
		prevGen       uint64
		observedMarks uint64
		reason        = "miss"
		storageKey    = r.storageKey(key)
	)
	if e != nil {
		prevGen = e.gen
		observedMarks = e.invalidations
		storageKey = e.storageKey
		switch {
		case e.invalidated:
			reason = "invalidated"
		case Expired(start, e.computedAt, e.ttl):
			reason = "expired"
		default:
			reason = "unreadable"
		}
	}
	r.mu.RUnlock()

	if e != nil && reason == "unreadable" {
		// another flight committed between our fresh check and this one
		if v, ok := r.readValue(ctx, storageKey, prevGen); ok {
			r.stats.hits.Add(1)
			return v, nil
		}
	}

	v, err := produce(ctx)
	if err != nil {
		return r.fallback(ctx, key, e, storageKey, prevGen, err)
	}

	computedAt := r.now()
	newGen := prevGen + 1
	payload, err := r.codec.Encode(v)
	if err != nil {
		// value is good, just not cacheable
		r.log.Error("encode failed; value served uncached", Fields{"key": key, "err": err})
		return v, nil
	}
	raw := wire.EncodeEntry(newGen, computedAt, payload)
	ok, err := r.provider.Set(ctx, storageKey, raw, r.computeSetCost(storageKey, raw), 0)
	if err != nil {
		r.hooks.ProviderError("set", storageKey, err)
		r.log.Warn("provider set failed; value served uncached", Fields{"key": key, "err": err})
		return v, nil
	}
	if !ok {
		r.hooks.ProviderSetRejected(storageKey)
		r.log.Debug("provider rejected set (pressure); value served uncached", Fields{"key": key})
		return v, nil
	}

	r.mu.Lock()
	cur := r.entries[key]
	switch {
	case e == nil && cur == nil:
		e = &entry{key: key, storageKey: storageKey, tags: tags, ttl: ttl}
		r.entries[key] = e
		for _, t := range tags {
			m := r.byTag[t]
			if m == nil {
				m = make(map[string]*entry)
				r.byTag[t] = m
			}
			m[key] = e
		}
	case cur != e:
		// Reset replaced the table while we were computing
		r.mu.Unlock()
		if err := r.provider.Del(ctx, storageKey); err != nil {
			r.hooks.ProviderError("del", storageKey, err)
		}
		r.log.Debug("recompute discarded (registry reset)", Fields{"key": key})
		return v, nil
	}
	e.gen = newGen
	e.computedAt = computedAt
	e.invalidated = e.invalidations != observedMarks
	r.mu.Unlock()

	if reason == "miss" {
		r.stats.misses.Add(1)
	} else {
		r.stats.refreshes.Add(1)
	}
	took := r.now().Sub(start)
	r.hooks.Recomputed(key, newGen, reason, took)
	r.log.Debug("entry recomputed", Fields{"key": key, "gen": newGen, "reason": reason})
	return v, nil
}

// fallback handles a producer error: serve the last good value if there is
// one, otherwise surface ComputationFailedError.
func (r *registry[V]) fallback(ctx context.Context, key string, e *entry, storageKey string, gen uint64, cause error) (V, error) {
	var zero V
	if e != nil {
		if v, ok := r.readValue(ctx, storageKey, gen); ok {
			r.stats.staleServed.Add(1)
			r.hooks.StaleServed(key, gen, cause)
			r.log.Warn("producer failed; serving stale value", Fields{"key": key, "gen": gen, "err": cause})
			return v, nil
		}
	}
	r.stats.failures.Add(1)
	r.hooks.ComputeFailed(key, cause)
	r.log.Error("producer failed; nothing to serve", Fields{"key": key, "err": cause})
	return zero, &ComputationFailedError{Key: key, Err: cause}
}

// readValue loads and decodes the stored frame for storageKey, accepting it
// only when it carries generation gen. Corrupt frames are deleted.
func (r *registry[V]) readValue(ctx context.Context, storageKey string, gen uint64) (V, bool) {
	var zero V
	raw, ok, err := r.provider.Get(ctx, storageKey)
	if err != nil {
		r.hooks.ProviderError("get", storageKey, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	f, err := wire.DecodeEntry(raw)
	if err != nil {
		r.selfHeal(ctx, storageKey, "corrupt")
		return zero, false
	}
	if f.Gen != gen {
		// a newer commit is on its way, or a leftover from before Reset
		return zero, false
	}
	v, err := r.codec.Decode(f.Payload)
	if err != nil {
		r.selfHeal(ctx, storageKey, "value_decode")
		return zero, false
	}
	return v, true
}

func (r *registry[V]) selfHeal(ctx context.Context, storageKey, reason string) {
	if err := r.provider.Del(ctx, storageKey); err != nil {
		r.hooks.ProviderError("del", storageKey, err)
	}
	r.hooks.SelfHeal(storageKey, reason)
	r.log.Debug("stored value dropped", Fields{"key": storageKey, "reason": reason})
}

// storageKey must be called with r.mu held.
func (r *registry[V]) storageKey(userKey string) string {
	// isolate by namespace and registry instance
	return util.StorageKey("entry:"+r.ns+":"+r.instance, userKey)
}
