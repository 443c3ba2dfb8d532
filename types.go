package rtti

import "fmt"

// TypeID is the stable numeric identifier of a reflectable type on the wire.
//
// Identifiers are part of the file format. Changing the number assigned to an
// existing type breaks every file written before the change; new types must only
// ever take new numbers. Zero is reserved for "no object".
type TypeID uint32

// NoType marks a nil object record.
const NoType TypeID = 0

// FieldID identifies one field within a type, independently of declaration order.
type FieldID uint16

// FieldKind selects how a field's payload is framed on the wire.
type FieldKind uint8

const (
	// FieldKindPlain is a value handled by a plain.Codec.
	FieldKindPlain FieldKind = iota + 1
	// FieldKindReflectable is a nested reflectable object owned by its parent.
	FieldKindReflectable
	// FieldKindReference is a nested reflectable object that may be shared; every
	// occurrence of the same instance in one graph decodes to one instance.
	FieldKindReference
	// FieldKindPlainArray is a sequence of plain values.
	FieldKindPlainArray
	// FieldKindReflectableArray is a sequence of owned reflectable objects.
	FieldKindReflectableArray
)

func (k FieldKind) String() string {
	switch k {
	case FieldKindPlain:
		return "plain"
	case FieldKindReflectable:
		return "reflectable"
	case FieldKindReference:
		return "reference"
	case FieldKindPlainArray:
		return "plain array"
	case FieldKindReflectableArray:
		return "reflectable array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k FieldKind) Valid() bool {
	return k >= FieldKindPlain && k <= FieldKindReflectableArray
}

// Reflectable is implemented by every type that can be persisted through a
// registered TypeDescriptor. Implementations must be pointer types.
type Reflectable interface {
	TypeID() TypeID
}

// BeforeEncoder is implemented by types that need to prepare state before their
// fields are read for encoding.
type BeforeEncoder interface {
	BeforeEncode() error
}

// AfterDecoder is implemented by types that need to rebuild derived state once all
// of their fields have been assigned. It is the "object fully decoded" signal.
type AfterDecoder interface {
	AfterDecode() error
}
