package freshness

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/codec"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newRegistry(t *testing.T, clk *clock) tagcache.Registry[Snapshot] {
	t.Helper()
	reg, err := tagcache.New[Snapshot](tagcache.Options[Snapshot]{
		Namespace: "freshness-test",
		Codec:     codec.JSON[Snapshot]{},
		Now:       clk.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}

func newBoard(t *testing.T) (*Board, tagcache.Registry[Snapshot], *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	reg := newRegistry(t, clk)
	b, err := NewBoard(reg, BoardOptions{Now: clk.Now})
	require.NoError(t, err)
	return b, reg, clk
}

func TestNewSnapshot(t *testing.T) {
	at := time.Date(2024, 3, 1, 15, 4, 5, 123000000, time.UTC)
	s := NewSnapshot(at, OnDemand, "abc")

	assert.Equal(t, "2024-03-01T15:04:05.123Z", s.Time)
	assert.Equal(t, at.UnixMilli(), s.Timestamp)
	assert.Equal(t, "3:04:05 PM", s.GeneratedAt)
	assert.Equal(t, "abc", s.InstanceID)
	assert.Equal(t, OnDemand, s.Strategy)
	assert.Len(t, s.RequestID, 36)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]{8}$`), s.DataTag)
	assert.NotEqual(t, s.RequestID, NewSnapshot(at, OnDemand, "abc").RequestID)
}

func TestInstanceKeysAndTags(t *testing.T) {
	reg := newRegistry(t, &clock{t: time.Now()})

	tb, err := NewInstance(reg, TimeBased, InstanceOptions{ID: "i1"})
	require.NoError(t, err)
	assert.Equal(t, "time-based-isr-data-i1", tb.Key())
	assert.Equal(t, []string{"time-based-isr-tag-i1"}, tb.Tags())
	assert.Equal(t, TimeBasedTTL, tb.TTL())

	od, err := NewInstance(reg, OnDemand, InstanceOptions{ID: "i2"})
	require.NoError(t, err)
	assert.Equal(t, "on-demand-time-i2", od.Key())
	assert.Equal(t, []string{"on-demand-instance-i2", OnDemandAllTag}, od.Tags())
	assert.Equal(t, tagcache.NoExpiration, od.TTL())

	_, err = NewInstance(nil, OnDemand, InstanceOptions{})
	assert.Error(t, err)
	_, err = NewInstance(reg, Strategy("isr"), InstanceOptions{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	a, _ := NewInstance(reg, OnDemand, InstanceOptions{})
	b, _ := NewInstance(reg, OnDemand, InstanceOptions{})
	assert.NotEqual(t, a.ID, b.ID, "instances must mint distinct IDs")
}

func TestUncachedStrategiesAlwaysFresh(t *testing.T) {
	b, reg, _ := newBoard(t)
	ctx := context.Background()

	for _, in := range []*Instance{b.Client, b.SSR} {
		s1, err := in.Read(ctx)
		require.NoError(t, err)
		s2, err := in.Read(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, s1.RequestID, s2.RequestID, in.String())
	}
	assert.Equal(t, 0, reg.Len())
}

func TestTimeBasedExpiresAfterTTL(t *testing.T) {
	b, _, clk := newBoard(t)
	ctx := context.Background()

	first, err := b.TimeBased.Read(ctx)
	require.NoError(t, err)

	clk.Advance(9999 * time.Millisecond)
	again, err := b.TimeBased.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	clk.Advance(time.Millisecond)
	later, err := b.TimeBased.Read(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.RequestID, later.RequestID)

	info, ok := b.TimeBased.Entry()
	require.True(t, ok)
	assert.Equal(t, uint64(2), info.Generation)
}

// TestRevalidateIsolation: revalidating the on-demand instance leaves the
// time-based one alone.
func TestRevalidateIsolation(t *testing.T) {
	b, reg, _ := newBoard(t)
	ctx := context.Background()

	v1, err := b.Render(ctx)
	require.NoError(t, err)
	od1, _ := v1.Card(OnDemand)
	tb1, _ := v1.Card(TimeBased)

	res, err := Revalidate(ctx, reg, OnDemand, b.OnDemand.ID)
	require.NoError(t, err)
	assert.True(t, res.Revalidated)
	assert.Equal(t, OnDemand, res.Type)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, b.OnDemand.ID, res.InstanceID)

	v2, err := b.Render(ctx)
	require.NoError(t, err)
	od2, _ := v2.Card(OnDemand)
	tb2, _ := v2.Card(TimeBased)

	assert.NotEqual(t, od1.Snapshot.RequestID, od2.Snapshot.RequestID)
	assert.Equal(t, od1.Generation+1, od2.Generation)
	assert.Equal(t, tb1.Snapshot, tb2.Snapshot)
	assert.Equal(t, tb1.Generation, tb2.Generation)
}

func TestRevalidateOnDemandWithoutInstanceHitsAll(t *testing.T) {
	clk := &clock{t: time.Now()}
	reg := newRegistry(t, clk)
	ctx := context.Background()

	var ins []*Instance
	for i := 0; i < 3; i++ {
		in, err := NewInstance(reg, OnDemand, InstanceOptions{Now: clk.Now})
		require.NoError(t, err)
		_, err = in.Read(ctx)
		require.NoError(t, err)
		ins = append(ins, in)
	}
	tb, _ := NewInstance(reg, TimeBased, InstanceOptions{Now: clk.Now})
	_, _ = tb.Read(ctx)

	res, err := Revalidate(ctx, reg, OnDemand, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "Revalidation triggered for all on-demand content", res.Message)

	for _, in := range ins {
		info, _ := in.Entry()
		assert.True(t, info.Invalidated)
	}
	info, _ := tb.Entry()
	assert.False(t, info.Invalidated)
}

func TestRevalidateTimeBased(t *testing.T) {
	b, reg, _ := newBoard(t)
	ctx := context.Background()
	_, err := b.Render(ctx)
	require.NoError(t, err)

	_, err = Revalidate(ctx, reg, TimeBased, "")
	assert.ErrorIs(t, err, ErrMissingInstance)

	res, err := Revalidate(ctx, reg, TimeBased, b.TimeBased.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "Revalidated time-based instance: "+b.TimeBased.ID, res.Message)

	info, _ := b.TimeBased.Entry()
	assert.True(t, info.Invalidated)
	info, _ = b.OnDemand.Entry()
	assert.False(t, info.Invalidated)

	_, err = Revalidate(ctx, reg, SSR, "x")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

type failingInvalidator struct{}

func (failingInvalidator) InvalidateTag(context.Context, string) (int, error) {
	return 0, errors.New("boom")
}

func TestRevalidateSurfacesInvalidatorError(t *testing.T) {
	_, err := Revalidate(context.Background(), failingInvalidator{}, OnDemand, "x")
	assert.Error(t, err)
}

func TestBoardLookup(t *testing.T) {
	b, _, _ := newBoard(t)
	in, ok := b.Lookup(b.SSR.ID)
	require.True(t, ok)
	assert.Equal(t, SSR, in.Strategy)
	_, ok = b.Lookup("nope")
	assert.False(t, ok)
}
