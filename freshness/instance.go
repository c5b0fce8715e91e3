package freshness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/tagcache"
)

const (
	// TimeBasedTTL is how long a time-based snapshot stays fresh.
	TimeBasedTTL = 10 * time.Second

	// OnDemandAllTag is carried by every on-demand instance.
	OnDemandAllTag = "on-demand-isr"
)

var ErrUnknownStrategy = errors.New("freshness: unknown strategy")

func TimeBasedKey(id string) string { return "time-based-isr-data-" + id }
func TimeBasedTag(id string) string { return "time-based-isr-tag-" + id }
func OnDemandKey(id string) string  { return "on-demand-time-" + id }
func OnDemandTag(id string) string  { return "on-demand-instance-" + id }

// Instance is one rendered component: a strategy plus the ID it was minted
// with. Key, tags and TTL are derived once and never change.
type Instance struct {
	ID       string
	Strategy Strategy

	key  string
	tags []string
	ttl  time.Duration

	reg tagcache.Registry[Snapshot]
	now func() time.Time
}

// InstanceOptions tune NewInstance. Zero values mean defaults.
type InstanceOptions struct {
	ID           string           // minted with uuid when empty
	TimeBasedTTL time.Duration    // default TimeBasedTTL
	Now          func() time.Time // default time.Now
}

// NewInstance mints an instance of strategy s. reg may be nil for
// uncached strategies.
func NewInstance(reg tagcache.Registry[Snapshot], s Strategy, opts InstanceOptions) (*Instance, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	if s.Cached() && reg == nil {
		return nil, fmt.Errorf("freshness: %s instance needs a registry", s)
	}
	in := &Instance{ID: opts.ID, Strategy: s, reg: reg, now: opts.Now}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.now == nil {
		in.now = time.Now
	}

	switch s {
	case TimeBased:
		in.key = TimeBasedKey(in.ID)
		in.tags = []string{TimeBasedTag(in.ID)}
		in.ttl = opts.TimeBasedTTL
		if in.ttl <= 0 {
			in.ttl = TimeBasedTTL
		}
	case OnDemand:
		in.key = OnDemandKey(in.ID)
		in.tags = []string{OnDemandTag(in.ID), OnDemandAllTag}
		in.ttl = tagcache.NoExpiration
	}
	return in, nil
}

func (in *Instance) Key() string        { return in.key }
func (in *Instance) Tags() []string     { return append([]string(nil), in.tags...) }
func (in *Instance) TTL() time.Duration { return in.ttl }
func (in *Instance) Cached() bool       { return in.Strategy.Cached() }
func (in *Instance) produce() Snapshot  { return NewSnapshot(in.now(), in.Strategy, in.ID) }
func (in *Instance) String() string     { return string(in.Strategy) + "/" + in.ID }

// Read returns the instance's snapshot: from the registry for cached
// strategies, freshly generated otherwise.
func (in *Instance) Read(ctx context.Context) (Snapshot, error) {
	if !in.Cached() {
		return in.produce(), nil
	}
	return in.reg.GetOrCompute(ctx, in.key, in.tags, in.ttl, func(context.Context) (Snapshot, error) {
		return in.produce(), nil
	})
}

// Entry returns the registry metadata for a cached instance.
func (in *Instance) Entry() (tagcache.EntryInfo, bool) {
	if !in.Cached() {
		return tagcache.EntryInfo{}, false
	}
	return in.reg.Entry(in.key)
}
