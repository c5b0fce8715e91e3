package freshness

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/tagcache"
)

// Board holds one instance per strategy, side by side, so revalidating one
// can be checked against the others.
type Board struct {
	Client    *Instance
	TimeBased *Instance
	OnDemand  *Instance
	SSR       *Instance

	now func() time.Time
}

type BoardOptions struct {
	TimeBasedTTL time.Duration
	Now          func() time.Time
}

func NewBoard(reg tagcache.Registry[Snapshot], opts BoardOptions) (*Board, error) {
	b := &Board{now: opts.Now}
	if b.now == nil {
		b.now = time.Now
	}
	io := InstanceOptions{TimeBasedTTL: opts.TimeBasedTTL, Now: b.now}

	var err error
	for _, slot := range []struct {
		dst **Instance
		s   Strategy
	}{
		{&b.Client, Client},
		{&b.TimeBased, TimeBased},
		{&b.OnDemand, OnDemand},
		{&b.SSR, SSR},
	} {
		if *slot.dst, err = NewInstance(reg, slot.s, io); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Board) Instances() []*Instance {
	return []*Instance{b.Client, b.TimeBased, b.OnDemand, b.SSR}
}

// Lookup finds the board instance with the given ID.
func (b *Board) Lookup(id string) (*Instance, bool) {
	for _, in := range b.Instances() {
		if in.ID == id {
			return in, true
		}
	}
	return nil, false
}

// Card is one rendered instance.
type Card struct {
	Strategy   Strategy  `json:"strategy"`
	InstanceID string    `json:"instanceId"`
	Key        string    `json:"key,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Snapshot   Snapshot  `json:"snapshot"`
	Cached     bool      `json:"cached"`
	Generation uint64    `json:"generation,omitempty"`
	ComputedAt time.Time `json:"computedAt,omitzero"`
}

// View is what Render returns: the page render time plus every card.
type View struct {
	RenderedAt time.Time `json:"renderedAt"`
	Nonce      string    `json:"nonce"`
	Cards      []Card    `json:"cards"`
}

func (v View) Card(s Strategy) (Card, bool) {
	for _, c := range v.Cards {
		if c.Strategy == s {
			return c, true
		}
	}
	return Card{}, false
}

// Render reads every instance. The page itself is never cached.
func (b *Board) Render(ctx context.Context) (View, error) {
	v := View{RenderedAt: b.now().UTC(), Nonce: dataTag()}
	for _, in := range b.Instances() {
		snap, err := in.Read(ctx)
		if err != nil {
			return View{}, fmt.Errorf("render %s: %w", in, err)
		}
		c := Card{
			Strategy:   in.Strategy,
			InstanceID: in.ID,
			Snapshot:   snap,
			Cached:     in.Cached(),
		}
		if info, ok := in.Entry(); ok {
			c.Key = info.Key
			c.Tags = info.Tags
			c.Generation = info.Generation
			c.ComputedAt = info.ComputedAt
		}
		v.Cards = append(v.Cards, c)
	}
	return v, nil
}
