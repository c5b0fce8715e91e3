package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1

	headerLen = 4 + 1 + 1 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("tagcache: corrupt entry")
	magic4     = [...]byte{'T', 'A', 'G', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Frame is a decoded stored value.
type Frame struct {
	Gen        uint64
	ComputedAt time.Time
	Payload    []byte
}

// Entry: magic(4) | ver(1) | kind(1=entry) | gen(u64 be) | computedAt(i64 be, unix nanos) | vlen(u32 be) | payload(vlen)
func EncodeEntry(gen uint64, computedAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(computedAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry parses a frame produced by EncodeEntry. Trailing bytes are
// rejected. The returned payload aliases b.
func DecodeEntry(b []byte) (Frame, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Frame{}, ErrCorrupt
	}

	off := 6

	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	nanos := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // strict framing
		return Frame{}, ErrCorrupt
	}

	return Frame{
		Gen:        gen,
		ComputedAt: time.Unix(0, nanos),
		Payload:    b[off : off+vlen],
	}, nil
}
