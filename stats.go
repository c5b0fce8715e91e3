package tagcache

import "sync/atomic"

// Stats are cumulative counters since the registry was created (Reset does
// not clear them).
type Stats struct {
	Hits          uint64 // served from cache without calling the producer
	Misses        uint64 // key had no entry yet
	Refreshes     uint64 // expired or invalidated entry recomputed
	StaleServed   uint64 // producer failed, previous value served
	Failures      uint64 // producer failed with nothing to serve
	Invalidations uint64 // InvalidateTag calls
	EntriesMarked uint64 // sum of InvalidateTag counts
	SharedFlights uint64 // callers whose result came from a recomputation shared with others
}

type counters struct {
	hits, misses, refreshes, staleServed, failures atomic.Uint64
	invalidations, entriesMarked, sharedFlights    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Refreshes:     c.refreshes.Load(),
		StaleServed:   c.staleServed.Load(),
		Failures:      c.failures.Load(),
		Invalidations: c.invalidations.Load(),
		EntriesMarked: c.entriesMarked.Load(),
		SharedFlights: c.sharedFlights.Load(),
	}
}
