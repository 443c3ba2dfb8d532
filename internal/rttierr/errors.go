package rttierr

import (
	"errors"
	"fmt"
)

var (
	// Cursor errors
	ErrBounds = errors.New("out of bounds")

	// Data errors
	ErrUnknownTypeID   = errors.New("unknown type id")
	ErrMalformedRecord = errors.New("malformed record")
	ErrTypeMismatch    = errors.New("type mismatch")

	// Size errors
	ErrSizeOverflow = errors.New("size overflow")
	ErrSizeMismatch = errors.New("size mismatch")

	// Registration errors
	ErrDuplicateType     = errors.New("duplicate type registration")
	ErrInvalidDescriptor = errors.New("invalid type descriptor")

	// Usage errors
	ErrNilObject       = errors.New("nil object")
	ErrCyclicOwnership = errors.New("cyclic ownership")
	ErrValueOutOfRange = errors.New("value out of range")
)

func NewBoundsError(op string, offset, n, length int) error {
	return fmt.Errorf("%w: %s of %d bytes at offset %d exceeds length %d", ErrBounds, op, n, offset, length)
}

func NewSeekError(offset, length int) error {
	return fmt.Errorf("%w: seek to offset %d outside [0, %d]", ErrBounds, offset, length)
}

func NewUnknownTypeIDError(typeID uint32, op Op) error {
	return fmt.Errorf("%w: type id %d has no registered descriptor during %s", ErrUnknownTypeID, typeID, op)
}

func NewMalformedRecordError(offset int, details string) error {
	return fmt.Errorf("%w: record at offset %d: %s", ErrMalformedRecord, offset, details)
}

func NewTypeMismatchError(what string, expected, actual any) error {
	return fmt.Errorf("%w: %s expected %v, got %v", ErrTypeMismatch, what, expected, actual)
}

func NewSizeOverflowError(size uint64) error {
	return fmt.Errorf("%w: record of %d bytes exceeds the 32-bit size header", ErrSizeOverflow, size)
}

func NewSizeMismatchError(field string, predicted, written uint32) error {
	return fmt.Errorf("%w: field '%s' predicted %d bytes but wrote %d", ErrSizeMismatch, field, predicted, written)
}

func NewDuplicateTypeError(typeID uint32, existing, incoming string) error {
	return fmt.Errorf("%w: type id %d already registered by %s, cannot register %s", ErrDuplicateType, typeID, existing, incoming)
}

func NewInvalidDescriptorError(typeName string, details error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, typeName, details)
}

func NewCyclicOwnershipError(typeName, field string) error {
	return fmt.Errorf("%w: %s reached again through owned field '%s', declare it as a reference", ErrCyclicOwnership, typeName, field)
}

func NewDepthExceededError(offset, limit int) error {
	return fmt.Errorf("%w: record at offset %d nests deeper than %d levels", ErrMalformedRecord, offset, limit)
}

func NewValueOutOfRangeError(codec string, value any) error {
	return fmt.Errorf("%w: %v cannot be encoded as %s", ErrValueOutOfRange, value, codec)
}
