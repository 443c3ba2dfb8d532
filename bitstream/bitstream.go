// Package bitstream provides the byte cursor every codec reads from and writes to.
//
// A Stream is an ordered byte sequence plus a read/write offset. All multi-byte
// values are little-endian and packed with no padding. Writes at an offset inside
// the sequence overwrite existing bytes; writes that run past the end append.
// Reads never grow the sequence. Any access outside [0, Len()] fails with an
// error wrapping ErrBounds and leaves the offset untouched.
//
// A Stream is not safe for concurrent use.
package bitstream

import (
	"encoding/binary"
	"math"

	"github.com/hengadev/rtti/internal/rttierr"
)

// ErrBounds is returned when a read, seek or skip leaves the buffer.
var ErrBounds = rttierr.ErrBounds

var order = binary.LittleEndian

// Stream is a growable byte buffer with a cursor.
type Stream struct {
	buf []byte
	pos int
}

// New returns an empty stream ready for writing.
func New() *Stream {
	return &Stream{}
}

// NewWithCapacity returns an empty stream with a preallocated buffer.
func NewWithCapacity(n int) *Stream {
	return &Stream{buf: make([]byte, 0, n)}
}

// FromBytes wraps b for reading. The stream takes ownership of b.
func FromBytes(b []byte) *Stream {
	return &Stream{buf: b}
}

// Bytes returns the whole underlying sequence, independent of the cursor.
func (s *Stream) Bytes() []byte { return s.buf }

// Len returns the length of the sequence.
func (s *Stream) Len() int { return len(s.buf) }

// Tell returns the current offset.
func (s *Stream) Tell() int { return s.pos }

// Remaining returns the number of bytes between the cursor and the end.
func (s *Stream) Remaining() int { return len(s.buf) - s.pos }

// Seek moves the cursor to an absolute offset. Seeking to Len() is allowed.
func (s *Stream) Seek(offset int) error {
	if offset < 0 || offset > len(s.buf) {
		return rttierr.NewSeekError(offset, len(s.buf))
	}
	s.pos = offset
	return nil
}

// Skip advances the cursor by n bytes without reading them.
func (s *Stream) Skip(n int) error {
	if n < 0 || n > s.Remaining() {
		return rttierr.NewBoundsError("skip", s.pos, n, len(s.buf))
	}
	s.pos += n
	return nil
}

// grow makes room for n bytes at the cursor and returns the target span.
func (s *Stream) grow(n int) []byte {
	end := s.pos + n
	if end > len(s.buf) {
		if end > cap(s.buf) {
			next := make([]byte, end, max(end, 2*cap(s.buf)))
			copy(next, s.buf)
			s.buf = next
		} else {
			s.buf = s.buf[:end]
		}
	}
	span := s.buf[s.pos:end]
	s.pos = end
	return span
}

// next returns the next n bytes for reading and advances the cursor.
func (s *Stream) next(n int) ([]byte, error) {
	if n < 0 || n > s.Remaining() {
		return nil, rttierr.NewBoundsError("read", s.pos, n, len(s.buf))
	}
	span := s.buf[s.pos : s.pos+n]
	s.pos += n
	return span, nil
}

func (s *Stream) WriteUint8(v uint8)   { s.grow(1)[0] = v }
func (s *Stream) WriteUint16(v uint16) { order.PutUint16(s.grow(2), v) }
func (s *Stream) WriteUint32(v uint32) { order.PutUint32(s.grow(4), v) }
func (s *Stream) WriteUint64(v uint64) { order.PutUint64(s.grow(8), v) }

func (s *Stream) WriteInt8(v int8)   { s.WriteUint8(uint8(v)) }
func (s *Stream) WriteInt16(v int16) { s.WriteUint16(uint16(v)) }
func (s *Stream) WriteInt32(v int32) { s.WriteUint32(uint32(v)) }
func (s *Stream) WriteInt64(v int64) { s.WriteUint64(uint64(v)) }

func (s *Stream) WriteFloat32(v float32) { s.WriteUint32(math.Float32bits(v)) }
func (s *Stream) WriteFloat64(v float64) { s.WriteUint64(math.Float64bits(v)) }

// WriteBool writes a single byte, 0x01 for true.
func (s *Stream) WriteBool(v bool) {
	if v {
		s.WriteUint8(1)
		return
	}
	s.WriteUint8(0)
}

// WriteBytes writes b verbatim with no length prefix.
func (s *Stream) WriteBytes(b []byte) {
	copy(s.grow(len(b)), b)
}

func (s *Stream) ReadUint8() (uint8, error) {
	b, err := s.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Stream) ReadUint16() (uint16, error) {
	b, err := s.next(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (s *Stream) ReadUint32() (uint32, error) {
	b, err := s.next(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

func (s *Stream) ReadUint64() (uint64, error) {
	b, err := s.next(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

func (s *Stream) ReadInt8() (int8, error) {
	v, err := s.ReadUint8()
	return int8(v), err
}

func (s *Stream) ReadInt16() (int16, error) {
	v, err := s.ReadUint16()
	return int16(v), err
}

func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

func (s *Stream) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

func (s *Stream) ReadFloat64() (float64, error) {
	v, err := s.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBool reads one byte; any non-zero value is true.
func (s *Stream) ReadBool() (bool, error) {
	v, err := s.ReadUint8()
	return v != 0, err
}

// ReadBytes returns a copy of the next n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	b, err := s.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// PeekUint32 reads a uint32 at the cursor without moving it.
func (s *Stream) PeekUint32() (uint32, error) {
	if s.Remaining() < 4 {
		return 0, rttierr.NewBoundsError("peek", s.pos, 4, len(s.buf))
	}
	return order.Uint32(s.buf[s.pos:]), nil
}

// Truncate drops every byte from offset n onward. The cursor is clamped to the new
// length.
func (s *Stream) Truncate(n int) error {
	if n < 0 || n > len(s.buf) {
		return rttierr.NewSeekError(n, len(s.buf))
	}
	s.buf = s.buf[:n]
	s.pos = min(s.pos, n)
	return nil
}
