package rtti

import (
	"fmt"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
	"github.com/hengadev/rtti/plain"
)

// maxNesting bounds object record nesting so crafted input cannot exhaust the stack.
const maxNesting = 512

// decoder reads one object graph. Objects are only handed to the caller once the
// whole graph decoded; on error everything it built is dropped.
type decoder struct {
	reg       *Registry
	s         *bitstream.Stream
	maxRecord uint32
	depth     int

	// refs maps reference numbers to decoded objects. An object is registered
	// before its own fields decode so cycles through reference fields resolve.
	refs map[uint32]Reflectable
}

func newDecoder(reg *Registry, s *bitstream.Stream, maxRecord uint32) *decoder {
	return &decoder{
		reg:       reg,
		s:         s,
		maxRecord: maxRecord,
		refs:      make(map[uint32]Reflectable),
	}
}

// checkRecord validates the size header at the cursor against the configured limit
// without consuming it.
func (d *decoder) checkRecord() error {
	start := d.s.Tell()
	end, err := plain.RecordEnd(d.s)
	if err != nil {
		return err
	}
	if d.maxRecord > 0 && uint32(end-start) > d.maxRecord {
		return rttierr.NewMalformedRecordError(start,
			fmt.Sprintf("declared size %d exceeds the limit of %d bytes", end-start, d.maxRecord))
	}
	return nil
}

// decodeRoot reads the root record, registered under rootRef before its fields
// decode.
func (d *decoder) decodeRoot() (Reflectable, error) {
	return d.decodeObject(func(obj Reflectable) { d.refs[rootRef] = obj })
}

// decodeObject reads one object record. created, when not nil, is called with the
// new instance before any of its fields decode.
func (d *decoder) decodeObject(created func(Reflectable)) (Reflectable, error) {
	start := d.s.Tell()
	if err := d.checkRecord(); err != nil {
		return nil, err
	}
	if d.depth >= maxNesting {
		return nil, rttierr.NewDepthExceededError(start, maxNesting)
	}
	d.depth++
	defer func() { d.depth-- }()

	var obj Reflectable
	err := plain.ReadWithSizeHeader(d.s, func(end int) error {
		rawID, err := d.s.ReadUint32()
		if err != nil {
			return err
		}
		if TypeID(rawID) == NoType {
			return nil
		}

		desc, err := d.reg.lookupFor(TypeID(rawID), rttierr.Decode)
		if err != nil {
			return err
		}
		obj, err = desc.New()
		if err != nil {
			return err
		}
		if created != nil {
			created(obj)
		}
		if err := d.decodeFields(desc, obj, end); err != nil {
			return fmt.Errorf("%s: %w", desc.name, err)
		}
		if hook, ok := obj.(AfterDecoder); ok {
			if err := hook.AfterDecode(); err != nil {
				return fmt.Errorf("%s after decode: %w", desc.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (d *decoder) decodeFields(desc *TypeDescriptor, obj Reflectable, end int) error {
	count, err := d.s.ReadUint16()
	if err != nil {
		return err
	}

	for i := 0; i < int(count); i++ {
		at := d.s.Tell()
		if end-at < fieldHeaderSize {
			return rttierr.NewMalformedRecordError(at,
				fmt.Sprintf("field %d of %d starts past the record end", i+1, count))
		}
		id, _ := d.s.ReadUint16()
		rawKind, _ := d.s.ReadUint8()
		fixed, _ := d.s.ReadUint8()
		kind := FieldKind(rawKind)

		f, known := desc.Field(FieldID(id))
		if !known || f.kind != kind || f.fixedSize != uint32(fixed) {
			if err := d.skipField(fixed); err != nil {
				return fmt.Errorf("skip field %d: %w", id, err)
			}
		} else if err := d.decodeField(f, obj); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}

		if d.s.Tell() > end {
			return rttierr.NewMalformedRecordError(at,
				fmt.Sprintf("field %d overran its object record", id))
		}
	}
	return nil
}

// skipField steps over a field payload this build cannot interpret. Fixed-size
// payloads carry their width in the field header, every other payload starts with
// its own size header.
func (d *decoder) skipField(fixed uint8) error {
	if fixed > 0 {
		return d.s.Skip(int(fixed))
	}
	return plain.SkipRecord(d.s)
}

func (d *decoder) decodeField(f *FieldDescriptor, obj Reflectable) error {
	switch f.kind {
	case FieldKindPlain, FieldKindPlainArray:
		return f.decodeValue(obj, d.s)

	case FieldKindReflectable:
		child, err := d.decodeObject(nil)
		if err != nil {
			return err
		}
		return f.setObject(obj, child)

	case FieldKindReference:
		if err := d.checkRecord(); err != nil {
			return err
		}
		var child Reflectable
		err := plain.ReadWithSizeHeader(d.s, func(end int) error {
			var err error
			child, err = d.decodeReference(end)
			return err
		})
		if err != nil {
			return err
		}
		return f.setObject(obj, child)

	case FieldKindReflectableArray:
		if err := d.checkRecord(); err != nil {
			return err
		}
		var items []Reflectable
		err := plain.ReadWithSizeHeader(d.s, func(end int) error {
			start := d.s.Tell()
			count, err := d.s.ReadUint32()
			if err != nil {
				return err
			}
			if uint64(count)*nilRecordSize > uint64(end-d.s.Tell()) {
				return rttierr.NewMalformedRecordError(start,
					fmt.Sprintf("element count %d exceeds remaining %d bytes", count, end-d.s.Tell()))
			}
			items = make([]Reflectable, count)
			for i := range items {
				if items[i], err = d.decodeObject(nil); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return f.setObjects(obj, items)
	}
	return fmt.Errorf("field %s has unknown kind", f)
}

// decodeReference resolves a reference number, decoding the object record that
// follows the first occurrence.
func (d *decoder) decodeReference(end int) (Reflectable, error) {
	at := d.s.Tell()
	ref, err := d.s.ReadUint32()
	if err != nil {
		return nil, err
	}
	if ref == 0 {
		return nil, nil
	}
	if obj, ok := d.refs[ref]; ok {
		return obj, nil
	}
	if d.s.Tell() >= end {
		return nil, rttierr.NewMalformedRecordError(at,
			fmt.Sprintf("reference %d points at an object that was never written", ref))
	}
	return d.decodeObject(func(obj Reflectable) { d.refs[ref] = obj })
}
