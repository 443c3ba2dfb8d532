package plain

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
)

// wide is the canonical on-the-wire text encoding: UTF-16, little-endian, no BOM.
var wide = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ToWide converts UTF-8 text to its canonical wide form. Invalid UTF-8 sequences are
// replaced with U+FFFD.
func ToWide(v string) ([]byte, error) {
	return wide.NewEncoder().Bytes([]byte(v))
}

// FromWide converts canonical wide text back to UTF-8.
func FromWide(b []byte) (string, error) {
	out, err := wide.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type stringCodec struct{}

// String encodes text as [u32 size][UTF-16LE code units] regardless of the in-memory
// representation, so files written by older wide-string builds stay readable.
var String Codec[string] = stringCodec{}

func (stringCodec) Encode(s *bitstream.Stream, v string) error {
	units, err := ToWide(v)
	if err != nil {
		return fmt.Errorf("encode wide string: %w", err)
	}
	return WriteWithSizeHeader(s, func() error {
		s.WriteBytes(units)
		return nil
	})
}

func (stringCodec) Decode(s *bitstream.Stream, v *string) error {
	return ReadWithSizeHeader(s, func(end int) error {
		n := end - s.Tell()
		if n%2 != 0 {
			return rttierr.NewMalformedRecordError(s.Tell()-HeaderSize,
				fmt.Sprintf("wide string payload has odd length %d", n))
		}
		units, err := s.ReadBytes(n)
		if err != nil {
			return err
		}
		out, err := FromWide(units)
		if err != nil {
			return fmt.Errorf("decode wide string: %w", err)
		}
		*v = out
		return nil
	})
}

func (stringCodec) Size(v string) (uint32, error) {
	units, err := ToWide(v)
	if err != nil {
		return 0, fmt.Errorf("size wide string: %w", err)
	}
	return SizeSum(HeaderSize, uint64(len(units)))
}

func (stringCodec) Dynamic() bool { return true }

type bytesCodec struct{}

// Bytes encodes an opaque blob as [u32 size][raw bytes]. A nil slice decodes as an
// empty, non-nil slice.
var Bytes Codec[[]byte] = bytesCodec{}

func (bytesCodec) Encode(s *bitstream.Stream, v []byte) error {
	return WriteWithSizeHeader(s, func() error {
		s.WriteBytes(v)
		return nil
	})
}

func (bytesCodec) Decode(s *bitstream.Stream, v *[]byte) error {
	return ReadWithSizeHeader(s, func(end int) error {
		out, err := s.ReadBytes(end - s.Tell())
		if err != nil {
			return err
		}
		*v = out
		return nil
	})
}

func (bytesCodec) Size(v []byte) (uint32, error) {
	return SizeSum(HeaderSize, uint64(len(v)))
}

func (bytesCodec) Dynamic() bool { return true }
