package codec

// Bytes is an identity codec for []byte values. Useful when values are
// already serialized and only the registry's framing and freshness
// bookkeeping are needed. Decode copies, so callers may keep or mutate the
// result without touching provider memory.
type Bytes struct{}

var _ Codec[[]byte] = Bytes{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }

// String is a trivial codec for Go string values. By convention this
// assumes UTF-8 and performs no validation.
type String struct{}

var _ Codec[string] = String{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
