package codec

import (
	"fmt"
	"strings"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ByName returns the codec registered under name. Recognized names are
// "json" (default for ""), "cbor", "cbor-deterministic" and "msgpack".
// Protobuf needs a message constructor and is built with NewProtobuf.
func ByName[V any](name string) (Codec[V], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON[V]{}, nil
	case "cbor":
		return NewCBOR[V](false)
	case "cbor-deterministic":
		return NewCBOR[V](true)
	case "msgpack":
		return Msgpack[V]{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
