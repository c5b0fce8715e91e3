// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/tagcache"
//	"github.com/unkn0wn-root/tagcache/codec"
//	asynchook "github.com/unkn0wn-root/tagcache/hooks/async"
//	"github.com/unkn0wn-root/tagcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:  10, // sample logs: ~every 10th self-heal
//	    RecomputeEvery: 1,  // log every recompute
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	reg, _ := tagcache.New[Page](tagcache.Options[Page]{
//	    Namespace: "app:prod:page",
//	    Codec:     codec.JSON[Page]{},
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/tagcache"
)

type Hooks struct {
	inner tagcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	mu     sync.RWMutex // guards closed against sends racing Close
	closed bool
}

var _ tagcache.Hooks = (*Hooks)(nil)

func New(inner tagcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) ComputeFailed(k string, err error)   { h.try(func() { h.inner.ComputeFailed(k, err) }) }
func (h *Hooks) TagInvalidated(tag string, n int)    { h.try(func() { h.inner.TagInvalidated(tag, n) }) }
func (h *Hooks) SelfHeal(k, r string)                { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)        { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) ProviderError(op, k string, e error) { h.try(func() { h.inner.ProviderError(op, k, e) }) }
func (h *Hooks) StaleServed(k string, gen uint64, err error) {
	h.try(func() { h.inner.StaleServed(k, gen, err) })
}
func (h *Hooks) Recomputed(k string, gen uint64, reason string, took time.Duration) {
	h.try(func() { h.inner.Recomputed(k, gen, reason, took) })
}
