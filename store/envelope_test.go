package store

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/rtti"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	for _, payload := range [][]byte{{}, {1}, []byte("some serialized graph")} {
		sealed := Seal(payload)
		assert.Len(t, sealed, envelopeHeaderSize+len(payload))

		got, err := Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestEnvelope_Header(t *testing.T) {
	sealed := Seal([]byte{0xAA})
	assert.Equal(t, "RTTI", string(sealed[:4]))
	assert.Equal(t, rtti.FormatVersion, binary.LittleEndian.Uint16(sealed[4:6]))
}

func TestEnvelope_Rejects(t *testing.T) {
	good := Seal([]byte("payload"))

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidEnvelope},
		{"short", good[:envelopeHeaderSize-1], ErrInvalidEnvelope},
		{"magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrInvalidEnvelope},
		{"version", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[4:], rtti.FormatVersion+1)
			return b
		}), ErrInvalidEnvelope},
		{"checksum", mutate(func(b []byte) []byte { b[10] ^= 1; return b }), ErrChecksumMismatch},
		{"payload", mutate(func(b []byte) []byte { b[len(b)-1] ^= 1; return b }), ErrChecksumMismatch},
		{"truncated payload", good[:len(good)-1], ErrChecksumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
