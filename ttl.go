package tagcache

import "time"

// Expired reports whether an entry computed at computedAt with the given TTL
// is stale at now. A negative TTL (NoExpiration) never expires; a zero TTL is
// stale immediately.
func Expired(now, computedAt time.Time, ttl time.Duration) bool {
	if ttl < 0 {
		return false
	}
	return !now.Before(computedAt.Add(ttl))
}
