package rtti

import (
	"fmt"
	"reflect"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/rttierr"
	"github.com/hengadev/rtti/plain"
)

// FieldDescriptor describes one persisted field of a reflectable type.
//
// Descriptors are built with PlainField, PlainArrayField, ReflectableField,
// ReferenceField and ReflectableArrayField. The accessor functions given to those
// constructors are the only way the engine reads or assigns the field.
type FieldDescriptor struct {
	name      string
	id        FieldID
	kind      FieldKind
	fixedSize uint32
	owner     reflect.Type

	// plain and plain array fields
	encodeValue func(obj Reflectable, s *bitstream.Stream, validate bool) error
	decodeValue func(obj Reflectable, s *bitstream.Stream) error
	sizeValue   func(obj Reflectable) (uint32, error)

	// reflectable and reference fields
	getObject func(obj Reflectable) (Reflectable, error)
	setObject func(obj Reflectable, v Reflectable) error

	// reflectable array fields
	getObjects func(obj Reflectable) ([]Reflectable, error)
	setObjects func(obj Reflectable, v []Reflectable) error
}

func (f *FieldDescriptor) Name() string    { return f.name }
func (f *FieldDescriptor) ID() FieldID     { return f.id }
func (f *FieldDescriptor) Kind() FieldKind { return f.kind }

// FixedSize returns the encoded width of a fixed-size plain field, 0 otherwise.
func (f *FieldDescriptor) FixedSize() uint32 { return f.fixedSize }

func (f *FieldDescriptor) String() string {
	return fmt.Sprintf("%s#%d(%s)", f.name, f.id, f.kind)
}

// ownerOf asserts that obj is the field's owning type.
func ownerOf[T Reflectable](f *FieldDescriptor, obj Reflectable) (T, error) {
	o, ok := obj.(T)
	if !ok {
		var zero T
		return zero, rttierr.NewTypeMismatchError("field '"+f.name+"' owner", f.owner, reflect.TypeOf(obj))
	}
	return o, nil
}

// encodeChecked encodes v and, when validate is set, compares the bytes written
// with the codec's own size prediction.
func encodeChecked[V any](name string, c plain.Codec[V], s *bitstream.Stream, v V, validate bool) error {
	start := s.Tell()
	if err := c.Encode(s, v); err != nil {
		return err
	}
	if !validate {
		return nil
	}
	predicted, err := c.Size(v)
	if err != nil {
		return err
	}
	if written := uint32(s.Tell() - start); written != predicted {
		return rttierr.NewSizeMismatchError(name, predicted, written)
	}
	return nil
}

// PlainField declares a field whose value is handled by a plain codec.
func PlainField[T Reflectable, V any](name string, id FieldID, codec plain.Codec[V], get func(T) V, set func(T, V)) *FieldDescriptor {
	f := &FieldDescriptor{
		name:      name,
		id:        id,
		kind:      FieldKindPlain,
		fixedSize: plain.FixedSize(codec),
		owner:     reflect.TypeFor[T](),
	}
	f.encodeValue = func(obj Reflectable, s *bitstream.Stream, validate bool) error {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return err
		}
		return encodeChecked(name, codec, s, get(o), validate)
	}
	f.decodeValue = func(obj Reflectable, s *bitstream.Stream) error {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return err
		}
		var v V
		if err := codec.Decode(s, &v); err != nil {
			return err
		}
		set(o, v)
		return nil
	}
	f.sizeValue = func(obj Reflectable) (uint32, error) {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return 0, err
		}
		return codec.Size(get(o))
	}
	return f
}

// PlainArrayField declares a sequence of plain values. Decoding assigns a non-nil
// slice even when the sequence is empty.
func PlainArrayField[T Reflectable, V any](name string, id FieldID, elem plain.Codec[V], get func(T) []V, set func(T, []V)) *FieldDescriptor {
	f := PlainField(name, id, plain.SliceOf(elem), get, set)
	f.kind = FieldKindPlainArray
	return f
}

// ReflectableField declares a nested object exclusively owned by its parent. Each
// occurrence is written in full.
func ReflectableField[T Reflectable, V Reflectable](name string, id FieldID, get func(T) V, set func(T, V)) *FieldDescriptor {
	f := &FieldDescriptor{
		name:  name,
		id:    id,
		kind:  FieldKindReflectable,
		owner: reflect.TypeFor[T](),
	}
	f.getObject = func(obj Reflectable) (Reflectable, error) {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return nil, err
		}
		v := get(o)
		if isNil(v) {
			return nil, nil
		}
		return v, nil
	}
	f.setObject = func(obj Reflectable, v Reflectable) error {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return err
		}
		typed, err := asField[V](f, v)
		if err != nil {
			return err
		}
		set(o, typed)
		return nil
	}
	return f
}

// ReferenceField declares a nested object that may be shared with other fields of
// the same graph. The first occurrence is written in full, later ones by reference.
func ReferenceField[T Reflectable, V Reflectable](name string, id FieldID, get func(T) V, set func(T, V)) *FieldDescriptor {
	f := ReflectableField(name, id, get, set)
	f.kind = FieldKindReference
	return f
}

// ReflectableArrayField declares a sequence of owned nested objects. Nil elements
// are preserved.
func ReflectableArrayField[T Reflectable, V Reflectable](name string, id FieldID, get func(T) []V, set func(T, []V)) *FieldDescriptor {
	f := &FieldDescriptor{
		name:  name,
		id:    id,
		kind:  FieldKindReflectableArray,
		owner: reflect.TypeFor[T](),
	}
	f.getObjects = func(obj Reflectable) ([]Reflectable, error) {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return nil, err
		}
		items := get(o)
		out := make([]Reflectable, len(items))
		for i, item := range items {
			if !isNil(item) {
				out[i] = item
			}
		}
		return out, nil
	}
	f.setObjects = func(obj Reflectable, items []Reflectable) error {
		o, err := ownerOf[T](f, obj)
		if err != nil {
			return err
		}
		out := make([]V, len(items))
		for i, item := range items {
			typed, err := asField[V](f, item)
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = typed
		}
		set(o, out)
		return nil
	}
	return f
}

// asField converts a decoded object to the field's declared type. A nil object
// becomes the zero value of V.
func asField[V Reflectable](f *FieldDescriptor, v Reflectable) (V, error) {
	var zero V
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(V)
	if !ok {
		return zero, rttierr.NewTypeMismatchError("field '"+f.name+"' value", reflect.TypeFor[V](), reflect.TypeOf(v))
	}
	return typed, nil
}

// isNil reports whether r is nil or a typed nil pointer.
func isNil(r Reflectable) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return v.IsNil()
	}
	return false
}
