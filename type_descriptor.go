package rtti

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/hengadev/errsx"

	"github.com/hengadev/rtti/internal/rttierr"
)

// TypeDescriptor is the reflection metadata of one reflectable type.
//
// A descriptor is immutable once built. It holds a diagnostic name, the stable
// wire identifier, the ordered field list and a factory for empty instances used
// during decode. Field order is the encode order; field identity on the wire is
// the FieldID, never the position.
//
// Example:
//
//	var sceneType = rtti.NewTypeDescriptor("Scene", 42,
//	    func() *Scene { return &Scene{} },
//	    rtti.PlainField("name", 0, plain.String,
//	        func(s *Scene) string { return s.Name },
//	        func(s *Scene, v string) { s.Name = v }),
//	)
type TypeDescriptor struct {
	name    string
	id      TypeID
	goType  reflect.Type
	factory func() Reflectable
	fields  []*FieldDescriptor
	byID    map[FieldID]*FieldDescriptor
}

// NewTypeDescriptor builds the descriptor of T. The factory must return a fresh,
// default-constructed, non-nil instance on every call.
func NewTypeDescriptor[T Reflectable](name string, id TypeID, factory func() T, fields ...*FieldDescriptor) *TypeDescriptor {
	d := &TypeDescriptor{
		name:   name,
		id:     id,
		goType: reflect.TypeFor[T](),
		fields: slices.Clone(fields),
		byID:   make(map[FieldID]*FieldDescriptor, len(fields)),
	}
	if factory != nil {
		d.factory = func() Reflectable { return factory() }
	}
	for _, f := range fields {
		if f != nil {
			d.byID[f.id] = f
		}
	}
	return d
}

func (d *TypeDescriptor) Name() string { return d.name }
func (d *TypeDescriptor) ID() TypeID   { return d.id }

// GoType returns the Go type the descriptor was built for.
func (d *TypeDescriptor) GoType() reflect.Type { return d.goType }

// Fields returns the fields in declaration order. The slice is a copy.
func (d *TypeDescriptor) Fields() []*FieldDescriptor { return slices.Clone(d.fields) }

// Field looks up a field by its wire identifier.
func (d *TypeDescriptor) Field(id FieldID) (*FieldDescriptor, bool) {
	f, ok := d.byID[id]
	return f, ok
}

// New returns an empty instance of the described type.
func (d *TypeDescriptor) New() (Reflectable, error) {
	if d.factory == nil {
		return nil, rttierr.NewInvalidDescriptorError(d.name, fmt.Errorf("no factory"))
	}
	obj := d.factory()
	if isNil(obj) {
		return nil, rttierr.NewInvalidDescriptorError(d.name, fmt.Errorf("factory returned nil"))
	}
	return obj, nil
}

func (d *TypeDescriptor) String() string {
	return fmt.Sprintf("%s(%d)", d.name, d.id)
}

// withFactory returns a copy of d that builds instances with factory instead.
func (d *TypeDescriptor) withFactory(factory func() Reflectable) *TypeDescriptor {
	out := *d
	out.factory = factory
	return &out
}

// Validate checks the descriptor for problems that would make it unusable on the
// wire. All problems are reported together.
func (d *TypeDescriptor) Validate() error {
	errs := make(errsx.Map)

	if d.name == "" {
		errs.Set("name", "must not be empty")
	}
	if d.id == NoType {
		errs.Set("id", "type id 0 is reserved for nil objects")
	}
	if len(d.fields) > math.MaxUint16 {
		errs.Set("fields", fmt.Sprintf("%d fields exceed the limit of %d", len(d.fields), math.MaxUint16))
	}

	seen := make(map[FieldID]string, len(d.fields))
	for i, f := range d.fields {
		if f == nil {
			errs.Set(fmt.Sprintf("fields[%d]", i), "nil field descriptor")
			continue
		}
		key := fmt.Sprintf("fields[%d] %q", i, f.name)
		if prev, dup := seen[f.id]; dup {
			errs.Set(key, fmt.Sprintf("field id %d already used by %q", f.id, prev))
		}
		seen[f.id] = f.name
		if !f.kind.Valid() {
			errs.Set(key, fmt.Sprintf("unknown field kind %d", uint8(f.kind)))
		}
		if f.fixedSize > math.MaxUint8 {
			errs.Set(key, fmt.Sprintf("fixed size %d does not fit the field header, use a dynamic codec", f.fixedSize))
		}
		if f.owner != nil && d.goType != nil && f.owner != d.goType {
			errs.Set(key, fmt.Sprintf("declared on %s, not %s", f.owner, d.goType))
		}
	}

	if d.factory == nil {
		errs.Set("factory", "must not be nil")
	} else if obj := d.factory(); isNil(obj) {
		errs.Set("factory", "returned a nil instance")
	} else {
		if got := reflect.TypeOf(obj); got.Kind() != reflect.Pointer {
			errs.Set("factory", fmt.Sprintf("must return a pointer, got %s", got))
		} else if got != d.goType {
			errs.Set("factory", fmt.Sprintf("returns %s, descriptor describes %s", got, d.goType))
		}
		if obj.TypeID() != d.id {
			errs.Set("factory type id", fmt.Sprintf("instance reports type id %d, descriptor has %d", obj.TypeID(), d.id))
		}
	}

	if errs.IsEmpty() {
		return nil
	}
	return rttierr.NewInvalidDescriptorError(d.name, errs.AsError())
}
