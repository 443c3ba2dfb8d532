// Package rtti persists graphs of Go objects in a compact, forward-compatible
// binary format driven by per-type reflection metadata.
//
// A type becomes persistable by describing its fields once, with ordinary accessor
// functions, and registering the description under a stable numeric type id:
//
//	type Scene struct {
//	    Name   string
//	    Camera *Camera
//	}
//
//	func (*Scene) TypeID() rtti.TypeID { return 42 }
//
//	var sceneType = rtti.NewTypeDescriptor("Scene", 42,
//	    func() *Scene { return &Scene{} },
//	    rtti.PlainField("name", 0, plain.String,
//	        func(s *Scene) string { return s.Name },
//	        func(s *Scene, v string) { s.Name = v }),
//	    rtti.ReflectableField("camera", 1,
//	        func(s *Scene) *Camera { return s.Camera },
//	        func(s *Scene, v *Camera) { s.Camera = v }),
//	)
//
//	func init() { rtti.MustRegister(sceneType) }
//
// Graphs are then written and read with a Serializer:
//
//	s, _ := rtti.New()
//	data, err := s.Serialize(ctx, scene)
//	obj, err := s.Deserialize(ctx, data, 42)
//
// # Wire format
//
// Every object is one record:
//
//	[u32 size][u32 type id][u16 field count]([u16 field id][u8 kind][u8 fixed size][payload])*
//
// The size counts the header itself. Fields are identified by id, not position, so
// fields can be reordered, added or removed without breaking older files: a reader
// skips every field it does not know, using the fixed size from the field header
// or the payload's own size header, and leaves fields missing from the stream at
// their default value.
//
// Type ids and field ids are part of the format. Never reuse or renumber them.
//
// # Field kinds
//
//   - PlainField: a value handled by a plain.Codec
//   - PlainArrayField: a sequence of plain values
//   - ReflectableField: a nested object owned by its parent
//   - ReferenceField: a nested object that may be shared; each instance is
//     written once per graph and decodes to one instance
//   - ReflectableArrayField: a sequence of owned nested objects
//
// # Errors
//
// Decoding is all-or-nothing: on any error no part of the graph is returned. Use
// IsDataError, IsProgrammingError, IsRegistrationError and IsConfigurationError to
// classify failures, or errors.Is with the exported sentinels.
//
// # Size validation
//
// Builds tagged rttidebug, or serializers created WithSizeValidation(true), compare
// every predicted size with the bytes actually written and fail with
// ErrSizeMismatch when a codec's Size disagrees with its Encode.
package rtti
