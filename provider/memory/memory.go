// Package memory is the default lossless in-process provider.
package memory

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/tagcache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// Memory keeps values in a map and never evicts on its own; entries only go
// away on Del, Close or when a positive TTL passed to Set elapses.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

var _ pr.Provider = (*Memory)(nil)

func New() *Memory {
	return &Memory{m: make(map[string]entry), now: time.Now}
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && !p.now().Before(e.exp) {
		p.mu.Lock()
		if cur, ok := p.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = entry{v: value, exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

// Len returns the number of stored keys, including expired ones not yet read.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// Keys returns a snapshot of stored keys in no particular order.
func (p *Memory) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	return out
}

func (p *Memory) Close(_ context.Context) error {
	p.mu.Lock()
	p.m = make(map[string]entry)
	p.mu.Unlock()
	return nil
}
