package library

import (
	"fmt"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
	"github.com/hengadev/rtti/plain"
)

// Entry record layouts:
//
//	file:      [u32 size][u32 tag=0][path][name][u64 last update, unix seconds]
//	directory: [u32 size][u32 tag=1][path][name][u32 child count][child record]*
//
// The tag always sits right after the size header, which is what lets a reader
// peek a child's kind before choosing how to decode it.
const (
	tagSize = 4
	// minEntrySize is the smallest record a tag can be read from.
	minEntrySize = plain.HeaderSize + tagSize
	maxTreeDepth = 512
)

type fileCodec struct{}

// FileCodec encodes a single file entry.
var FileCodec plain.Codec[*FileEntry] = fileCodec{}

func (fileCodec) Encode(s *bitstream.Stream, f *FileEntry) error {
	if f == nil {
		return fmt.Errorf("%w: file entry", rttierr.ErrNilObject)
	}
	return plain.WriteWithSizeHeader(s, func() error {
		s.WriteUint32(uint32(EntryTypeFile))
		if err := encodeIdentity(s, &f.entryBase); err != nil {
			return err
		}
		return plain.UnixSeconds.Encode(s, f.LastUpdate)
	})
}

func (fileCodec) Decode(s *bitstream.Stream, v **FileEntry) error {
	f := &FileEntry{}
	err := plain.ReadWithSizeHeader(s, func(end int) error {
		if err := expectTag(s, EntryTypeFile); err != nil {
			return err
		}
		if err := decodeIdentity(s, &f.entryBase); err != nil {
			return err
		}
		return plain.UnixSeconds.Decode(s, &f.LastUpdate)
	})
	if err != nil {
		return err
	}
	*v = f
	return nil
}

func (fileCodec) Size(f *FileEntry) (uint32, error) {
	if f == nil {
		return 0, fmt.Errorf("%w: file entry", rttierr.ErrNilObject)
	}
	id, err := identitySize(&f.entryBase)
	if err != nil {
		return 0, err
	}
	return plain.SizeSum(plain.HeaderSize, tagSize, uint64(id), uint64(plain.FixedSize(plain.UnixSeconds)))
}

func (fileCodec) Dynamic() bool { return true }

type directoryCodec struct{}

// DirectoryCodec encodes a directory entry together with its whole subtree. Decoded
// children have their parent set to the directory they were read into. Children
// whose tag is unknown are skipped.
var DirectoryCodec plain.Codec[*DirectoryEntry] = directoryCodec{}

func (directoryCodec) Encode(s *bitstream.Stream, d *DirectoryEntry) error {
	if d == nil {
		return fmt.Errorf("%w: directory entry", rttierr.ErrNilObject)
	}
	return plain.WriteWithSizeHeader(s, func() error {
		s.WriteUint32(uint32(EntryTypeDirectory))
		if err := encodeIdentity(s, &d.entryBase); err != nil {
			return err
		}
		s.WriteUint32(uint32(len(d.children)))
		for i, child := range d.children {
			if err := encodeEntry(s, child); err != nil {
				return fmt.Errorf("%s child %d: %w", d.path, i, err)
			}
		}
		return nil
	})
}

func encodeEntry(s *bitstream.Stream, e Entry) error {
	switch v := e.(type) {
	case *FileEntry:
		return FileCodec.Encode(s, v)
	case *DirectoryEntry:
		return DirectoryCodec.Encode(s, v)
	default:
		return fmt.Errorf("%w: unsupported entry %T", rttierr.ErrTypeMismatch, e)
	}
}

func (directoryCodec) Decode(s *bitstream.Stream, v **DirectoryEntry) error {
	d := &DirectoryEntry{children: []Entry{}}
	if err := decodeDirectory(s, d, 0); err != nil {
		return err
	}
	*v = d
	return nil
}

func decodeDirectory(s *bitstream.Stream, d *DirectoryEntry, depth int) error {
	if depth >= maxTreeDepth {
		return rttierr.NewDepthExceededError(s.Tell(), maxTreeDepth)
	}
	return plain.ReadWithSizeHeader(s, func(end int) error {
		if err := expectTag(s, EntryTypeDirectory); err != nil {
			return err
		}
		if err := decodeIdentity(s, &d.entryBase); err != nil {
			return err
		}

		start := s.Tell()
		count, err := s.ReadUint32()
		if err != nil {
			return err
		}
		if int64(count)*minEntrySize > int64(end-s.Tell()) {
			return rttierr.NewMalformedRecordError(start,
				fmt.Sprintf("child count %d does not fit the remaining %d bytes", count, end-s.Tell()))
		}

		for i := uint32(0); i < count; i++ {
			if err := decodeChild(s, d, end, depth); err != nil {
				return fmt.Errorf("%s child %d: %w", d.path, i, err)
			}
		}
		return nil
	})
}

// decodeChild peeks the tag of the next child record, decodes the matching entry
// kind and attaches it to parent.
func decodeChild(s *bitstream.Stream, parent *DirectoryEntry, parentEnd, depth int) error {
	tag, err := peekTag(s, parentEnd)
	if err != nil {
		return err
	}

	switch tag {
	case EntryTypeFile:
		var f *FileEntry
		if err := FileCodec.Decode(s, &f); err != nil {
			return err
		}
		parent.attach(f)
	case EntryTypeDirectory:
		sub := &DirectoryEntry{children: []Entry{}}
		if err := decodeDirectory(s, sub, depth+1); err != nil {
			return err
		}
		parent.attach(sub)
	default:
		return plain.SkipRecord(s)
	}
	return nil
}

// peekTag reads the entry tag of the record at the cursor and leaves the cursor
// where it was.
func peekTag(s *bitstream.Stream, parentEnd int) (EntryType, error) {
	offset := s.Tell()
	end, err := plain.RecordEnd(s)
	if err != nil {
		return 0, err
	}
	if end > parentEnd {
		return 0, rttierr.NewMalformedRecordError(offset, "child record runs past its parent")
	}
	if end-offset < minEntrySize {
		return 0, rttierr.NewMalformedRecordError(offset, "entry tag lies outside the record")
	}

	if err := s.Skip(plain.HeaderSize); err != nil {
		return 0, err
	}
	raw, err := s.ReadUint32()
	if serr := s.Seek(offset); serr != nil && err == nil {
		err = serr
	}
	return EntryType(raw), err
}

func expectTag(s *bitstream.Stream, want EntryType) error {
	raw, err := s.ReadUint32()
	if err != nil {
		return err
	}
	if got := EntryType(raw); got != want {
		return rttierr.NewTypeMismatchError("entry tag", want, got)
	}
	return nil
}

func (directoryCodec) Size(d *DirectoryEntry) (uint32, error) {
	if d == nil {
		return 0, fmt.Errorf("%w: directory entry", rttierr.ErrNilObject)
	}
	id, err := identitySize(&d.entryBase)
	if err != nil {
		return 0, err
	}
	total := uint64(plain.HeaderSize) + tagSize + uint64(id) + 4
	for _, child := range d.children {
		var n uint32
		switch v := child.(type) {
		case *FileEntry:
			n, err = FileCodec.Size(v)
		case *DirectoryEntry:
			n, err = DirectoryCodec.Size(v)
		default:
			err = fmt.Errorf("%w: unsupported entry %T", rttierr.ErrTypeMismatch, child)
		}
		if err != nil {
			return 0, err
		}
		total += uint64(n)
	}
	return plain.CheckSize(total)
}

func (directoryCodec) Dynamic() bool { return true }

// The element name is always written in wide form; the name hash is never
// written and is recomputed from the decoded name.
func encodeIdentity(s *bitstream.Stream, e *entryBase) error {
	if err := plain.String.Encode(s, e.path); err != nil {
		return err
	}
	return plain.String.Encode(s, e.name)
}

func decodeIdentity(s *bitstream.Stream, e *entryBase) error {
	if err := plain.String.Decode(s, &e.path); err != nil {
		return err
	}
	var name string
	if err := plain.String.Decode(s, &name); err != nil {
		return err
	}
	e.SetElementName(name)
	return nil
}

func identitySize(e *entryBase) (uint32, error) {
	p, err := plain.String.Size(e.path)
	if err != nil {
		return 0, err
	}
	n, err := plain.String.Size(e.name)
	if err != nil {
		return 0, err
	}
	return plain.SizeSum(uint64(p), uint64(n))
}
