package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type snapshot struct {
	Time      string `json:"time" msgpack:"time" cbor:"time"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp" cbor:"timestamp"`
}

func TestByNameKnownAndUnknown(t *testing.T) {
	for _, name := range []string{"", "json", "JSON", "cbor", "cbor-deterministic", "msgpack"} {
		cd, err := ByName[snapshot](name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		in := snapshot{Time: "2024-01-01T00:00:00Z", Timestamp: 1704067200000}
		b, err := cd.Encode(in)
		if err != nil {
			t.Fatalf("%q encode: %v", name, err)
		}
		out, err := cd.Decode(b)
		if err != nil || out != in {
			t.Fatalf("%q decode: got=%v err=%v", name, out, err)
		}
	}

	if _, err := ByName[snapshot]("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestLimitRejectsOversizedDecode(t *testing.T) {
	lc := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := lc.Decode([]byte("12345")); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	got, err := lc.Decode([]byte("1234"))
	if err != nil || got != "1234" {
		t.Fatalf("boundary decode: got=%q err=%v", got, err)
	}

	unlimited := Limit[string]{Inner: String{}}
	if _, err := unlimited.Decode(bytes.Repeat([]byte("a"), 1<<16)); err != nil {
		t.Fatalf("MaxDecode=0 should disable limit, got %v", err)
	}
}

func TestCBORDeterministicIsStable(t *testing.T) {
	cd := MustCBOR[map[string]int](true)
	m := map[string]int{"b": 2, "a": 1, "c": 3, "d": 4}
	first, err := cd.Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := cd.Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic CBOR produced different bytes")
		}
	}
}

func TestProtobufCodec(t *testing.T) {
	pc := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := pc.Encode(wrapperspb.String("on-demand-instance-1"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := pc.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetValue() != "on-demand-instance-1" {
		t.Fatalf("got %q", got.GetValue())
	}

	var zero Protobuf[*wrapperspb.StringValue]
	if _, err := zero.Decode(b); !errors.Is(err, errNilCtor) {
		t.Fatalf("zero-value decode: expected errNilCtor, got %v", err)
	}
}

func TestBytesDecodeCopies(t *testing.T) {
	src := []byte("abc")
	got, _ := Bytes{}.Decode(src)
	got[0] = 'z'
	if src[0] != 'a' {
		t.Fatalf("Bytes.Decode must not alias input")
	}
}
