package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/tagcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RecomputeEvery uint64
	SelfHealEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	recomputeCtr atomic.Uint64
	selfHealCtr  atomic.Uint64
}

var _ tagcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StaleServed(key string, gen uint64, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tagcache.stale_served",
		"key", h.redact(key),
		"gen", gen,
		"err", err)
}

func (h *Hooks) ComputeFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("tagcache.compute_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Recomputed(key string, gen uint64, reason string, took time.Duration) {
	if h.l == nil || !sample(h.opts.RecomputeEvery, &h.recomputeCtr) {
		return
	}
	h.l.Debug("tagcache.recomputed",
		"key", h.redact(key),
		"gen", gen,
		"reason", reason,
		"took", took)
}

func (h *Hooks) TagInvalidated(tag string, count int) {
	if h.l == nil {
		return
	}
	h.l.Info("tagcache.tag_invalidated",
		"tag", tag,
		"count", count)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("tagcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("tagcache.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) ProviderError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tagcache.provider_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}
