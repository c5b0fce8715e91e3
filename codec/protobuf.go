package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNilCtor = errors.New("codec: protobuf codec built without a message constructor")

// Protobuf encodes generated protobuf messages.
// Build it with NewProtobuf; the zero value cannot decode.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *timepb.Snapshot { return &timepb.Snapshot{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errNilCtor
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
