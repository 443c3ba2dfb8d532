package rtti

import (
	"fmt"
	"io"
	"strings"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
	"github.com/hengadev/rtti/plain"
)

// RecordInfo describes one object record without decoding it into Go values.
type RecordInfo struct {
	Offset   int
	Size     uint32
	TypeID   TypeID
	TypeName string // empty when the type is not registered
	Fields   []FieldInfo
}

// Nil reports whether the record encodes a nil object.
func (r *RecordInfo) Nil() bool { return r.TypeID == NoType }

// FieldInfo describes one field inside an object record.
type FieldInfo struct {
	Offset    int
	ID        FieldID
	Kind      FieldKind
	FixedSize uint8
	// Size is the payload size in bytes, excluding the field header.
	Size uint32
	// Name is empty when the field is unknown to the registered descriptor.
	Name string
	// Ref is the reference number of a reference field, 0 for nil.
	Ref uint32
	// Count is the element count of array fields.
	Count uint32
	// Records holds the nested object records of reflectable, reference and
	// reflectable array fields.
	Records []*RecordInfo
}

// Inspect walks the object record at the start of data and reports its structure.
// Types need not be registered; reg only supplies names and may be nil.
func Inspect(data []byte, reg *Registry) (*RecordInfo, error) {
	s := bitstream.FromBytes(data)
	in := inspector{s: s, reg: reg}
	info, err := in.record()
	if err != nil {
		return nil, err
	}
	if s.Remaining() != 0 {
		return info, rttierr.NewMalformedRecordError(s.Tell(),
			fmt.Sprintf("%d trailing bytes after the root record", s.Remaining()))
	}
	return info, nil
}

type inspector struct {
	s     *bitstream.Stream
	reg   *Registry
	depth int
}

func (in *inspector) describe(id TypeID) *TypeDescriptor {
	if in.reg == nil {
		return nil
	}
	d, _ := in.reg.Lookup(id)
	return d
}

func (in *inspector) record() (*RecordInfo, error) {
	if in.depth >= maxNesting {
		return nil, rttierr.NewDepthExceededError(in.s.Tell(), maxNesting)
	}
	in.depth++
	defer func() { in.depth-- }()

	info := &RecordInfo{Offset: in.s.Tell()}
	err := plain.ReadWithSizeHeader(in.s, func(end int) error {
		info.Size = uint32(end - info.Offset)
		raw, err := in.s.ReadUint32()
		if err != nil {
			return err
		}
		info.TypeID = TypeID(raw)
		if info.TypeID == NoType {
			return nil
		}
		desc := in.describe(info.TypeID)
		if desc != nil {
			info.TypeName = desc.name
		}

		count, err := in.s.ReadUint16()
		if err != nil {
			return err
		}
		for i := 0; i < int(count); i++ {
			f, err := in.field(desc, end)
			if err != nil {
				return err
			}
			info.Fields = append(info.Fields, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (in *inspector) field(desc *TypeDescriptor, end int) (FieldInfo, error) {
	f := FieldInfo{Offset: in.s.Tell()}
	if end-f.Offset < fieldHeaderSize {
		return f, rttierr.NewMalformedRecordError(f.Offset, "field header runs past the record end")
	}
	id, _ := in.s.ReadUint16()
	kind, _ := in.s.ReadUint8()
	fixed, _ := in.s.ReadUint8()
	f.ID, f.Kind, f.FixedSize = FieldID(id), FieldKind(kind), fixed

	if desc != nil {
		if fd, ok := desc.Field(f.ID); ok {
			f.Name = fd.name
		}
	}

	payload := in.s.Tell()
	var err error
	switch {
	case fixed > 0:
		err = in.s.Skip(int(fixed))
	case f.Kind == FieldKindReflectable:
		var r *RecordInfo
		if r, err = in.record(); err == nil {
			f.Records = []*RecordInfo{r}
		}
	case f.Kind == FieldKindReference:
		err = plain.ReadWithSizeHeader(in.s, func(end int) error {
			ref, err := in.s.ReadUint32()
			if err != nil {
				return err
			}
			f.Ref = ref
			if ref == 0 || in.s.Tell() >= end {
				return nil
			}
			r, err := in.record()
			if err != nil {
				return err
			}
			f.Records = []*RecordInfo{r}
			return nil
		})
	case f.Kind == FieldKindReflectableArray:
		err = plain.ReadWithSizeHeader(in.s, func(end int) error {
			count, err := in.s.ReadUint32()
			if err != nil {
				return err
			}
			f.Count = count
			for i := uint32(0); i < count && in.s.Tell() < end; i++ {
				r, err := in.record()
				if err != nil {
					return err
				}
				f.Records = append(f.Records, r)
			}
			return nil
		})
	case f.Kind == FieldKindPlainArray:
		err = plain.ReadWithSizeHeader(in.s, func(int) error {
			count, err := in.s.ReadUint32()
			f.Count = count
			return err
		})
	default:
		err = plain.SkipRecord(in.s)
	}
	if err != nil {
		return f, err
	}
	if in.s.Tell() > end {
		return f, rttierr.NewMalformedRecordError(f.Offset, "field overran its object record")
	}
	f.Size = uint32(in.s.Tell() - payload)
	return f, nil
}

// Print writes an indented, human-readable rendering of the record tree.
func (r *RecordInfo) Print(w io.Writer) error {
	return r.print(w, 0)
}

func (r *RecordInfo) print(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	if r.Nil() {
		_, err := fmt.Fprintf(w, "%s<nil> @%d\n", indent, r.Offset)
		return err
	}

	name := r.TypeName
	if name == "" {
		name = "?"
	}
	if _, err := fmt.Fprintf(w, "%s%s (type %d) @%d, %d bytes, %d fields\n",
		indent, name, r.TypeID, r.Offset, r.Size, len(r.Fields)); err != nil {
		return err
	}

	for _, f := range r.Fields {
		fname := f.Name
		if fname == "" {
			fname = "?"
		}
		line := fmt.Sprintf("%s  #%d %s [%s] %d bytes", indent, f.ID, fname, f.Kind, f.Size)
		switch f.Kind {
		case FieldKindReference:
			line += fmt.Sprintf(" ref=%d", f.Ref)
		case FieldKindPlainArray, FieldKindReflectableArray:
			line += fmt.Sprintf(" count=%d", f.Count)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for _, nested := range f.Records {
			if err := nested.print(w, depth+2); err != nil {
				return err
			}
		}
	}
	return nil
}
