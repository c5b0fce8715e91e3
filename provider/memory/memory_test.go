package memory

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New()
	t.Cleanup(func() { _ = p.Close(ctx) })

	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v"), 1, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(b) != "v" {
		t.Fatalf("Get: b=%q ok=%v err=%v", b, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	p := New()
	p.now = func() time.Time { return now }

	if _, err := p.Set(ctx, "k", []byte("v"), 1, time.Second); err != nil {
		t.Fatal(err)
	}
	now = now.Add(999 * time.Millisecond)
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	now = now.Add(time.Millisecond)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss at expiry")
	}
	if p.Len() != 0 {
		t.Fatalf("expired key should be dropped on read, len=%d", p.Len())
	}
}

func TestMemoryNoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	p := New()
	p.now = func() time.Time { return now }

	_, _ = p.Set(ctx, "k", []byte("v"), 1, 0)
	now = now.Add(24 * 365 * time.Hour)
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatalf("ttl=0 entry should not expire")
	}
	if keys := p.Keys(); len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("Keys: %v", keys)
	}
}
