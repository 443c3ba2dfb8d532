package rtti

import (
	"fmt"
	"math"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
	"github.com/hengadev/rtti/plain"
)

// Object record layout:
//
//	[u32 size][u32 type id][u16 field count]([u16 field id][u8 kind][u8 fixed size][payload])*
//
// A nil object is the 8-byte record [8][0].
const (
	objectHeaderSize = plain.HeaderSize + 4 + 2
	nilRecordSize    = plain.HeaderSize + 4
	fieldHeaderSize  = 2 + 1 + 1

	// rootRef is the reference number the root record always holds.
	rootRef uint32 = 1
)

// encoder writes one object graph. It is used for a single call and discarded.
type encoder struct {
	reg      *Registry
	s        *bitstream.Stream
	validate bool

	// refs numbers the root and every object reached through a reference field.
	refs map[Reflectable]uint32
	// active holds the objects whose records are currently open.
	active map[Reflectable]struct{}
}

func newEncoder(reg *Registry, s *bitstream.Stream, validate bool) *encoder {
	return &encoder{
		reg:      reg,
		s:        s,
		validate: validate,
		refs:     make(map[Reflectable]uint32),
		active:   make(map[Reflectable]struct{}),
	}
}

// encodeRoot writes the root record. The root is numbered before its fields so a
// reference back to it is written as a number, not a second record.
func (e *encoder) encodeRoot(obj Reflectable) error {
	if !isNil(obj) {
		e.refs[obj] = rootRef
	}
	return e.encodeObject(obj)
}

func (e *encoder) encodeObject(obj Reflectable) error {
	if isNil(obj) {
		e.s.WriteUint32(nilRecordSize)
		e.s.WriteUint32(uint32(NoType))
		return nil
	}

	desc, err := e.reg.descriptorOf(obj)
	if err != nil {
		return err
	}
	if hook, ok := obj.(BeforeEncoder); ok {
		if err := hook.BeforeEncode(); err != nil {
			return fmt.Errorf("%s before encode: %w", desc.name, err)
		}
	}

	e.active[obj] = struct{}{}
	defer delete(e.active, obj)

	return plain.WriteWithSizeHeader(e.s, func() error {
		e.s.WriteUint32(uint32(desc.id))
		e.s.WriteUint16(uint16(len(desc.fields)))
		for _, f := range desc.fields {
			if err := e.encodeField(desc, f, obj); err != nil {
				return fmt.Errorf("%s.%s: %w", desc.name, f.name, err)
			}
		}
		return nil
	})
}

func (e *encoder) encodeField(desc *TypeDescriptor, f *FieldDescriptor, obj Reflectable) error {
	e.s.WriteUint16(uint16(f.id))
	e.s.WriteUint8(uint8(f.kind))
	e.s.WriteUint8(uint8(f.fixedSize))

	switch f.kind {
	case FieldKindPlain, FieldKindPlainArray:
		return f.encodeValue(obj, e.s, e.validate)

	case FieldKindReflectable:
		child, err := f.getObject(obj)
		if err != nil {
			return err
		}
		if err := e.checkOwned(desc, f, child); err != nil {
			return err
		}
		return e.encodeObject(child)

	case FieldKindReference:
		child, err := f.getObject(obj)
		if err != nil {
			return err
		}
		return plain.WriteWithSizeHeader(e.s, func() error {
			return e.encodeReference(child)
		})

	case FieldKindReflectableArray:
		items, err := f.getObjects(obj)
		if err != nil {
			return err
		}
		return plain.WriteWithSizeHeader(e.s, func() error {
			e.s.WriteUint32(uint32(len(items)))
			for i, item := range items {
				if err := e.checkOwned(desc, f, item); err != nil {
					return err
				}
				if err := e.encodeObject(item); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			return nil
		})
	}
	return rttierr.NewInvalidDescriptorError(desc.name, fmt.Errorf("field %s has unknown kind", f))
}

// encodeReference writes a reference number, followed by the object record the
// first time the object is seen.
func (e *encoder) encodeReference(child Reflectable) error {
	if child == nil {
		e.s.WriteUint32(0)
		return nil
	}
	if ref, seen := e.refs[child]; seen {
		e.s.WriteUint32(ref)
		return nil
	}
	if len(e.refs) == math.MaxUint32-1 {
		return rttierr.NewSizeOverflowError(uint64(len(e.refs)) + 1)
	}
	ref := uint32(len(e.refs)) + 1
	e.refs[child] = ref
	e.s.WriteUint32(ref)
	return e.encodeObject(child)
}

// checkOwned rejects an owned edge back into an object whose record is still open,
// which would otherwise recurse forever.
func (e *encoder) checkOwned(desc *TypeDescriptor, f *FieldDescriptor, child Reflectable) error {
	if child == nil {
		return nil
	}
	if _, open := e.active[child]; open {
		return rttierr.NewCyclicOwnershipError(desc.name, f.name)
	}
	return nil
}

// sizer predicts the byte count encoder writes for the same graph. It walks the
// graph in the same order so reference numbering matches.
type sizer struct {
	reg    *Registry
	refs   map[Reflectable]struct{}
	active map[Reflectable]struct{}
}

func newSizer(reg *Registry) *sizer {
	return &sizer{
		reg:    reg,
		refs:   make(map[Reflectable]struct{}),
		active: make(map[Reflectable]struct{}),
	}
}

func (z *sizer) rootSize(obj Reflectable) (uint64, error) {
	if !isNil(obj) {
		z.refs[obj] = struct{}{}
	}
	return z.objectSize(obj)
}

func (z *sizer) objectSize(obj Reflectable) (uint64, error) {
	if isNil(obj) {
		return nilRecordSize, nil
	}
	desc, err := z.reg.descriptorOf(obj)
	if err != nil {
		return 0, err
	}
	z.active[obj] = struct{}{}
	defer delete(z.active, obj)

	total := uint64(objectHeaderSize)
	for _, f := range desc.fields {
		n, err := z.fieldSize(desc, f, obj)
		if err != nil {
			return 0, fmt.Errorf("%s.%s: %w", desc.name, f.name, err)
		}
		total += fieldHeaderSize + n
	}
	if _, err := plain.CheckSize(total); err != nil {
		return 0, err
	}
	return total, nil
}

func (z *sizer) fieldSize(desc *TypeDescriptor, f *FieldDescriptor, obj Reflectable) (uint64, error) {
	switch f.kind {
	case FieldKindPlain, FieldKindPlainArray:
		n, err := f.sizeValue(obj)
		return uint64(n), err

	case FieldKindReflectable:
		child, err := f.getObject(obj)
		if err != nil {
			return 0, err
		}
		if err := z.checkOwned(desc, f, child); err != nil {
			return 0, err
		}
		return z.objectSize(child)

	case FieldKindReference:
		child, err := f.getObject(obj)
		if err != nil {
			return 0, err
		}
		total := uint64(plain.HeaderSize + 4)
		if child == nil {
			return total, nil
		}
		if _, seen := z.refs[child]; seen {
			return total, nil
		}
		z.refs[child] = struct{}{}
		n, err := z.objectSize(child)
		return total + n, err

	case FieldKindReflectableArray:
		items, err := f.getObjects(obj)
		if err != nil {
			return 0, err
		}
		total := uint64(plain.HeaderSize + 4)
		for _, item := range items {
			if err := z.checkOwned(desc, f, item); err != nil {
				return 0, err
			}
			n, err := z.objectSize(item)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}
	return 0, fmt.Errorf("field %s has unknown kind", f)
}

func (z *sizer) checkOwned(desc *TypeDescriptor, f *FieldDescriptor, child Reflectable) error {
	if child == nil {
		return nil
	}
	if _, open := z.active[child]; open {
		return rttierr.NewCyclicOwnershipError(desc.name, f.name)
	}
	return nil
}
