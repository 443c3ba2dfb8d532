package rtti

import (
	"errors"

	"github.com/hengadev/rtti/internal/rttierr"
)

var (
	// Cursor errors
	ErrBounds = rttierr.ErrBounds

	// Data errors
	ErrUnknownTypeID   = rttierr.ErrUnknownTypeID
	ErrMalformedRecord = rttierr.ErrMalformedRecord
	ErrTypeMismatch    = rttierr.ErrTypeMismatch

	// Size errors
	ErrSizeOverflow = rttierr.ErrSizeOverflow
	ErrSizeMismatch = rttierr.ErrSizeMismatch

	// Registration errors
	ErrDuplicateType     = rttierr.ErrDuplicateType
	ErrInvalidDescriptor = rttierr.ErrInvalidDescriptor

	// Usage errors
	ErrNilObject       = rttierr.ErrNilObject
	ErrCyclicOwnership = rttierr.ErrCyclicOwnership
	ErrValueOutOfRange = rttierr.ErrValueOutOfRange

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsDataError returns true if the error comes from bytes that cannot be decoded:
// truncated input, corrupt framing, unknown or unexpected type ids.
func IsDataError(err error) bool {
	return errors.Is(err, ErrBounds) ||
		errors.Is(err, ErrUnknownTypeID) ||
		errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrTypeMismatch)
}

// IsProgrammingError returns true if the error points at a bug in a codec or in the
// graph handed to the serializer rather than at the input.
func IsProgrammingError(err error) bool {
	return errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrSizeOverflow) ||
		errors.Is(err, ErrNilObject) ||
		errors.Is(err, ErrCyclicOwnership) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRegistrationError returns true if the error comes from registering a type.
func IsRegistrationError(err error) bool {
	return errors.Is(err, ErrDuplicateType) ||
		errors.Is(err, ErrInvalidDescriptor)
}

// IsConfigurationError returns true if the error comes from an invalid Config.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
