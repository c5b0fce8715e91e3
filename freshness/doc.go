// Package freshness reproduces four page-freshness strategies on top of a
// tagcache.Registry:
//
//   - client: a new snapshot on every request, nothing cached
//   - time-based: cached for TimeBasedTTL, also invalidatable per instance
//   - on-demand: cached until its instance tag (or OnDemandAllTag) is invalidated
//   - ssr: rendered per request, never cached
//
// Every cached Instance mints its own ID once and threads it through its
// cache key and tags, so invalidating one instance never touches another.
package freshness
