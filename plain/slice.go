package plain

import (
	"fmt"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
)

type sliceCodec[V any] struct {
	elem Codec[V]
}

// SliceOf encodes a sequence as [u32 size][u32 count][element]*. Decoding always
// yields a non-nil slice, so an empty sequence round-trips as empty rather than nil.
func SliceOf[V any](elem Codec[V]) Codec[[]V] {
	return sliceCodec[V]{elem: elem}
}

func (c sliceCodec[V]) Encode(s *bitstream.Stream, v []V) error {
	return WriteWithSizeHeader(s, func() error {
		s.WriteUint32(uint32(len(v)))
		for i := range v {
			if err := c.elem.Encode(s, v[i]); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	})
}

func (c sliceCodec[V]) Decode(s *bitstream.Stream, v *[]V) error {
	return ReadWithSizeHeader(s, func(end int) error {
		start := s.Tell()
		count, err := s.ReadUint32()
		if err != nil {
			return err
		}

		// Every element takes at least one byte, so a count larger than the
		// remaining payload cannot be honest.
		if int64(count) > int64(end-s.Tell()) {
			return rttierr.NewMalformedRecordError(start,
				fmt.Sprintf("element count %d exceeds remaining %d bytes", count, end-s.Tell()))
		}

		out := make([]V, count)
		for i := range out {
			if err := c.elem.Decode(s, &out[i]); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			if s.Tell() > end {
				return rttierr.NewMalformedRecordError(start,
					fmt.Sprintf("element %d overran the sequence", i))
			}
		}
		*v = out
		return nil
	})
}

func (c sliceCodec[V]) Size(v []V) (uint32, error) {
	total := uint64(HeaderSize + 4)
	for i := range v {
		n, err := c.elem.Size(v[i])
		if err != nil {
			return 0, err
		}
		total += uint64(n)
	}
	return CheckSize(total)
}

func (c sliceCodec[V]) Dynamic() bool { return true }
