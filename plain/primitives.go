package plain

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
)

var (
	Bool = Fixed(1, (*bitstream.Stream).WriteBool, (*bitstream.Stream).ReadBool)

	Uint8  = Fixed(1, (*bitstream.Stream).WriteUint8, (*bitstream.Stream).ReadUint8)
	Uint16 = Fixed(2, (*bitstream.Stream).WriteUint16, (*bitstream.Stream).ReadUint16)
	Uint32 = Fixed(4, (*bitstream.Stream).WriteUint32, (*bitstream.Stream).ReadUint32)
	Uint64 = Fixed(8, (*bitstream.Stream).WriteUint64, (*bitstream.Stream).ReadUint64)

	Int8  = Fixed(1, (*bitstream.Stream).WriteInt8, (*bitstream.Stream).ReadInt8)
	Int16 = Fixed(2, (*bitstream.Stream).WriteInt16, (*bitstream.Stream).ReadInt16)
	Int32 = Fixed(4, (*bitstream.Stream).WriteInt32, (*bitstream.Stream).ReadInt32)
	Int64 = Fixed(8, (*bitstream.Stream).WriteInt64, (*bitstream.Stream).ReadInt64)

	Float32 = Fixed(4, (*bitstream.Stream).WriteFloat32, (*bitstream.Stream).ReadFloat32)
	Float64 = Fixed(8, (*bitstream.Stream).WriteFloat64, (*bitstream.Stream).ReadFloat64)
)

// UUID encodes a uuid.UUID as its 16 raw bytes.
var UUID = Fixed(16,
	func(s *bitstream.Stream, v uuid.UUID) { s.WriteBytes(v[:]) },
	func(s *bitstream.Stream) (uuid.UUID, error) {
		b, err := s.ReadBytes(16)
		if err != nil {
			return uuid.Nil, err
		}
		return uuid.FromBytes(b)
	},
)

// Time encodes a time.Time as signed Unix nanoseconds. Decoded values are in UTC.
// The zero time.Time is written as math.MinInt64. Times outside the range of
// UnixNano, roughly the years 1678 to 2262, fail with ErrValueOutOfRange.
var Time Codec[time.Time] = nanoTime{}

const zeroNanos = math.MinInt64

var (
	minNanoTime = time.Unix(0, zeroNanos+1)
	maxNanoTime = time.Unix(0, math.MaxInt64)
)

type nanoTime struct{}

func (nanoTime) check(v time.Time) error {
	if v.IsZero() {
		return nil
	}
	if v.Before(minNanoTime) || v.After(maxNanoTime) {
		return rttierr.NewValueOutOfRangeError("unix nanoseconds", v.UTC())
	}
	return nil
}

func (c nanoTime) Encode(s *bitstream.Stream, v time.Time) error {
	if err := c.check(v); err != nil {
		return err
	}
	if v.IsZero() {
		s.WriteInt64(zeroNanos)
		return nil
	}
	s.WriteInt64(v.UnixNano())
	return nil
}

func (nanoTime) Decode(s *bitstream.Stream, v *time.Time) error {
	n, err := s.ReadInt64()
	if err != nil {
		return err
	}
	if n == zeroNanos {
		*v = time.Time{}
		return nil
	}
	*v = time.Unix(0, n).UTC()
	return nil
}

func (c nanoTime) Size(v time.Time) (uint32, error) {
	if err := c.check(v); err != nil {
		return 0, err
	}
	return 8, nil
}

func (nanoTime) Dynamic() bool { return false }

// UnixSeconds encodes a time.Time as a count of whole seconds since the epoch, the
// layout of a 64-bit C time_t timestamp: 0 is the epoch and times before it are
// negative. Sub-second precision is dropped and decoded values are in UTC. The zero
// time.Time needs no marker, its seconds decode back to the zero value.
var UnixSeconds = Fixed(8,
	func(s *bitstream.Stream, v time.Time) { s.WriteInt64(v.Unix()) },
	func(s *bitstream.Stream) (time.Time, error) {
		n, err := s.ReadInt64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(n, 0).UTC(), nil
	},
)

// Enum8 encodes any uint8-backed enumeration.
func Enum8[E ~uint8]() Codec[E] {
	return Fixed(1,
		func(s *bitstream.Stream, v E) { s.WriteUint8(uint8(v)) },
		func(s *bitstream.Stream) (E, error) {
			v, err := s.ReadUint8()
			return E(v), err
		},
	)
}

// Enum32 encodes any uint32-backed enumeration.
func Enum32[E ~uint32]() Codec[E] {
	return Fixed(4,
		func(s *bitstream.Stream, v E) { s.WriteUint32(uint32(v)) },
		func(s *bitstream.Stream) (E, error) {
			v, err := s.ReadUint32()
			return E(v), err
		},
	)
}
