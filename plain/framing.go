package plain

import (
	"fmt"
	"math"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
)

// HeaderSize is the width of the size header that precedes every dynamic record.
const HeaderSize = 4

// WriteWithSizeHeader frames whatever body writes with a 32-bit size header.
//
// A placeholder is written first, body runs, then the cursor seeks back and
// overwrites the placeholder with the byte count of body plus the header itself,
// and finally seeks forward past the payload.
func WriteWithSizeHeader(s *bitstream.Stream, body func() error) error {
	start := s.Tell()
	s.WriteUint32(0)

	if err := body(); err != nil {
		return err
	}

	end := s.Tell()
	size, err := CheckSize(uint64(end - start))
	if err != nil {
		return err
	}

	if err := s.Seek(start); err != nil {
		return err
	}
	s.WriteUint32(size)
	return s.Seek(end)
}

// ReadWithSizeHeader reads a size header and hands the record bounds to body.
//
// body receives the absolute end offset of the record. Once body returns, the
// cursor is moved to that end offset, so trailing bytes a newer writer appended
// inside the record are skipped. A body that reads past the end is an error.
func ReadWithSizeHeader(s *bitstream.Stream, body func(end int) error) error {
	start := s.Tell()
	end, err := readRecordEnd(s)
	if err != nil {
		return err
	}

	if err := body(end); err != nil {
		return err
	}

	if s.Tell() > end {
		return rttierr.NewMalformedRecordError(start,
			fmt.Sprintf("payload overran the declared size by %d bytes", s.Tell()-end))
	}
	return s.Seek(end)
}

// SkipRecord skips one size-framed record starting at the cursor.
func SkipRecord(s *bitstream.Stream) error {
	start := s.Tell()
	end, err := readRecordEnd(s)
	if err != nil {
		return err
	}
	if err := s.Seek(end); err != nil {
		_ = s.Seek(start)
		return err
	}
	return nil
}

// RecordEnd peeks the size header at the cursor and returns the record end offset
// without moving the cursor.
func RecordEnd(s *bitstream.Stream) (int, error) {
	start := s.Tell()
	end, err := readRecordEnd(s)
	if serr := s.Seek(start); serr != nil && err == nil {
		err = serr
	}
	return end, err
}

func readRecordEnd(s *bitstream.Stream) (int, error) {
	start := s.Tell()
	size, err := s.ReadUint32()
	if err != nil {
		return 0, err
	}
	if size < HeaderSize {
		_ = s.Seek(start)
		return 0, rttierr.NewMalformedRecordError(start,
			fmt.Sprintf("declared size %d is smaller than its own header", size))
	}
	end := start + int(size)
	if end > s.Len() {
		_ = s.Seek(start)
		return 0, rttierr.NewBoundsError("record", start, int(size), s.Len())
	}
	return end, nil
}

// CheckSize narrows a computed record size to the 32-bit header range.
func CheckSize(size uint64) (uint32, error) {
	if size > math.MaxUint32 {
		return 0, rttierr.NewSizeOverflowError(size)
	}
	return uint32(size), nil
}

// SizeSum adds sizes in 64-bit arithmetic and fails if the total does not fit the
// size header.
func SizeSum(parts ...uint64) (uint32, error) {
	var total uint64
	for _, p := range parts {
		total += p
		if total > math.MaxUint32 {
			return 0, rttierr.NewSizeOverflowError(total)
		}
	}
	return uint32(total), nil
}
