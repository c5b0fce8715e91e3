// Package tagcache implements an in-process cache registry whose entries are
// keyed by a cache key, labelled with revalidation tags and optionally bounded
// by a time-to-live. Stale entries are recomputed lazily on the next read;
// invalidating a tag only marks the entries that carry it.
//
// Components:
//   - Registry[V]: entry metadata (tags, TTL, generation, invalidation mark)
//     plus single-flight recomputation per key.
//   - Provider: byte store holding the encoded values (memory by default,
//     Ristretto, BigCache or Redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//
// Storage keys:
//
//	entry:<ns>:<instance>:<key>
//
// Read/invalidate pattern:
//
//	v, err := reg.GetOrCompute(ctx, "on-demand-time-"+id, []string{"on-demand-instance-" + id}, tagcache.NoExpiration, load)
//	n, err := reg.InvalidateTag(ctx, "on-demand-instance-"+id) // next read of the key recomputes
//
// A producer failure never drops a previously computed value: the last good
// value is served and the failure is reported through Hooks and the Logger.
package tagcache
