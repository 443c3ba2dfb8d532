package bitstream

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	s := New()
	s.WriteUint8(0xAB)
	s.WriteUint16(0xBEEF)
	s.WriteUint32(0xDEADBEEF)
	s.WriteUint64(math.MaxUint64 - 1)
	s.WriteInt8(-3)
	s.WriteInt16(-300)
	s.WriteInt32(-70000)
	s.WriteInt64(math.MinInt64)
	s.WriteFloat32(1.5)
	s.WriteFloat64(-2.25)
	s.WriteBool(true)
	s.WriteBool(false)
	s.WriteBytes([]byte("xyz"))

	assert.Equal(t, 1+2+4+8+1+2+4+8+4+8+1+1+3, s.Len())
	assert.Equal(t, s.Len(), s.Tell())

	require.NoError(t, s.Seek(0))

	u8, err := s.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)
	u16, _ := s.ReadUint16()
	assert.Equal(t, uint16(0xBEEF), u16)
	u32, _ := s.ReadUint32()
	assert.Equal(t, uint32(0xDEADBEEF), u32)
	u64, _ := s.ReadUint64()
	assert.Equal(t, uint64(math.MaxUint64-1), u64)
	i8, _ := s.ReadInt8()
	assert.Equal(t, int8(-3), i8)
	i16, _ := s.ReadInt16()
	assert.Equal(t, int16(-300), i16)
	i32, _ := s.ReadInt32()
	assert.Equal(t, int32(-70000), i32)
	i64, _ := s.ReadInt64()
	assert.Equal(t, int64(math.MinInt64), i64)
	f32, _ := s.ReadFloat32()
	assert.Equal(t, float32(1.5), f32)
	f64, _ := s.ReadFloat64()
	assert.Equal(t, -2.25, f64)
	b1, _ := s.ReadBool()
	assert.True(t, b1)
	b2, _ := s.ReadBool()
	assert.False(t, b2)
	raw, err := s.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("xyz"), raw)
	assert.Equal(t, 0, s.Remaining())
}

func TestLittleEndianLayout(t *testing.T) {
	s := New()
	s.WriteUint32(0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, s.Bytes())
}

func TestWriteInsideOverwrites(t *testing.T) {
	s := New()
	s.WriteUint32(0)
	s.WriteUint32(7)
	end := s.Tell()

	require.NoError(t, s.Seek(0))
	s.WriteUint32(42)
	assert.Equal(t, 8, s.Len(), "overwrite must not grow the buffer")
	require.NoError(t, s.Seek(end))

	require.NoError(t, s.Seek(0))
	v, err := s.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
	v, err = s.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
}

func TestBounds(t *testing.T) {
	s := FromBytes([]byte{1, 2, 3})

	_, err := s.ReadUint32()
	assert.ErrorIs(t, err, ErrBounds)
	assert.Equal(t, 0, s.Tell(), "failed read must not move the cursor")

	assert.ErrorIs(t, s.Seek(4), ErrBounds)
	assert.ErrorIs(t, s.Seek(-1), ErrBounds)
	assert.NoError(t, s.Seek(3))
	assert.Equal(t, 3, s.Tell())

	require.NoError(t, s.Seek(1))
	assert.ErrorIs(t, s.Skip(3), ErrBounds)
	assert.ErrorIs(t, s.Skip(-1), ErrBounds)
	assert.Equal(t, 1, s.Tell())
	assert.NoError(t, s.Skip(2))

	_, err = s.ReadBytes(1)
	assert.ErrorIs(t, err, ErrBounds)
	_, err = s.PeekUint32()
	assert.ErrorIs(t, err, ErrBounds)
}

func TestPeekDoesNotAdvance(t *testing.T) {
	s := New()
	s.WriteUint32(99)
	require.NoError(t, s.Seek(0))

	v, err := s.PeekUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), v)
	assert.Equal(t, 0, s.Tell())
}

func TestReadBytesCopies(t *testing.T) {
	src := []byte{9, 8, 7}
	s := FromBytes(src)
	out, err := s.ReadBytes(3)
	require.NoError(t, err)
	out[0] = 0
	assert.Equal(t, byte(9), src[0])
}

func TestTruncate(t *testing.T) {
	s := New()
	s.WriteUint32(1)
	s.WriteUint32(2)

	require.NoError(t, s.Truncate(4))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 4, s.Tell())

	s.WriteUint16(3)
	assert.Equal(t, []byte{1, 0, 0, 0, 3, 0}, s.Bytes())

	assert.ErrorIs(t, s.Truncate(10), ErrBounds)
}
