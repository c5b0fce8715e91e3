package freshness

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Strategy names a freshness strategy.
type Strategy string

const (
	Client    Strategy = "client"
	TimeBased Strategy = "time-based"
	OnDemand  Strategy = "on-demand"
	SSR       Strategy = "ssr"
)

func (s Strategy) Valid() bool {
	switch s {
	case Client, TimeBased, OnDemand, SSR:
		return true
	}
	return false
}

// Cached reports whether the strategy goes through the registry.
func (s Strategy) Cached() bool { return s == TimeBased || s == OnDemand }

// Snapshot is the time payload every strategy renders.
type Snapshot struct {
	Time        string   `json:"time" cbor:"time" msgpack:"time"`
	Timestamp   int64    `json:"timestamp" cbor:"timestamp" msgpack:"timestamp"`
	RequestID   string   `json:"requestId" cbor:"requestId" msgpack:"requestId"`
	GeneratedAt string   `json:"generatedAt" cbor:"generatedAt" msgpack:"generatedAt"`
	DataTag     string   `json:"dataTag,omitempty" cbor:"dataTag,omitempty" msgpack:"dataTag,omitempty"`
	InstanceID  string   `json:"instanceId,omitempty" cbor:"instanceId,omitempty" msgpack:"instanceId,omitempty"`
	Strategy    Strategy `json:"strategy" cbor:"strategy" msgpack:"strategy"`
}

// NewSnapshot captures now for strategy s.
func NewSnapshot(now time.Time, s Strategy, instanceID string) Snapshot {
	now = now.UTC()
	return Snapshot{
		Time:        now.Format("2006-01-02T15:04:05.000Z07:00"),
		Timestamp:   now.UnixMilli(),
		RequestID:   uuid.NewString(),
		GeneratedAt: now.Format("3:04:05 PM"),
		DataTag:     dataTag(),
		InstanceID:  instanceID,
		Strategy:    s,
	}
}

// dataTag is an 8 char base36 marker that differs on every generation.
func dataTag() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "error"
	}
	s := strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
	for len(s) < 8 {
		s = "0" + s
	}
	return s[:8]
}
