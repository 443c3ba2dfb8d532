package store

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/hengadev/rtti"
	"github.com/hengadev/rtti/bitstream"
)

// Envelope layout: ["RTTI"][u16 format version][32-byte BLAKE2b-256 of payload][payload]
var magic = []byte("RTTI")

const envelopeHeaderSize = 4 + 2 + blake2b.Size256

// Seal wraps payload in an envelope.
func Seal(payload []byte) []byte {
	sum := blake2b.Sum256(payload)
	s := bitstream.NewWithCapacity(envelopeHeaderSize + len(payload))
	s.WriteBytes(magic)
	s.WriteUint16(rtti.FormatVersion)
	s.WriteBytes(sum[:])
	s.WriteBytes(payload)
	return s.Bytes()
}

// Open checks an envelope and returns its payload.
func Open(data []byte) ([]byte, error) {
	if len(data) < envelopeHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidEnvelope, len(data))
	}
	s := bitstream.FromBytes(data)
	m, _ := s.ReadBytes(len(magic))
	if !bytes.Equal(m, magic) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidEnvelope, m)
	}
	version, _ := s.ReadUint16()
	if version != rtti.FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrInvalidEnvelope, version, rtti.FormatVersion)
	}
	want, _ := s.ReadBytes(blake2b.Size256)
	payload, _ := s.ReadBytes(s.Remaining())

	got := blake2b.Sum256(payload)
	if !bytes.Equal(got[:], want) {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}
