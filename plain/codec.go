// Package plain defines binary codecs for non-reflectable values.
//
// A Codec knows how to write one Go value type to a bitstream.Stream, read it back,
// and predict its encoded size without encoding it. Fixed-size codecs always encode to
// the same number of bytes and carry no header. Dynamic codecs frame their payload
// with a 32-bit size header that counts the header itself, which lets any reader skip
// a value it does not understand (see WriteWithSizeHeader and ReadWithSizeHeader).
package plain

import (
	"github.com/hengadev/rtti/bitstream"
)

// Codec encodes and decodes values of type V.
//
// Size must return exactly the number of bytes Encode writes for v, including any size
// header. Implementations must be stateless and safe for concurrent use.
type Codec[V any] interface {
	Encode(s *bitstream.Stream, v V) error
	Decode(s *bitstream.Stream, v *V) error
	Size(v V) (uint32, error)
	// Dynamic reports whether the encoded length depends on the value.
	Dynamic() bool
}

// FixedSize returns the encoded width of a fixed-size codec, or 0 for dynamic codecs.
func FixedSize[V any](c Codec[V]) uint32 {
	if c.Dynamic() {
		return 0
	}
	var zero V
	n, err := c.Size(zero)
	if err != nil {
		return 0
	}
	return n
}

// fixed adapts a pair of stream accessors into a fixed-size Codec.
type fixed[V any] struct {
	width uint32
	put   func(s *bitstream.Stream, v V)
	get   func(s *bitstream.Stream) (V, error)
}

func (c fixed[V]) Encode(s *bitstream.Stream, v V) error {
	c.put(s, v)
	return nil
}

func (c fixed[V]) Decode(s *bitstream.Stream, v *V) error {
	out, err := c.get(s)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (c fixed[V]) Size(V) (uint32, error) { return c.width, nil }

func (c fixed[V]) Dynamic() bool { return false }

// Fixed builds a fixed-size codec from a writer and a reader. width must equal the
// number of bytes put writes; composite fixed records use this to avoid a size header.
func Fixed[V any](width uint32, put func(s *bitstream.Stream, v V), get func(s *bitstream.Stream) (V, error)) Codec[V] {
	return fixed[V]{width: width, put: put, get: get}
}
