package rtti

// Environment variable names
const (
	// EnvValidateSizes turns debug size validation on ("true", "1", "yes").
	EnvValidateSizes = "RTTI_VALIDATE_SIZES"

	// EnvMaxRecordSize caps the size header any decoded record may declare, in bytes.
	// Zero or unset means no limit beyond the 32-bit header.
	EnvMaxRecordSize = "RTTI_MAX_RECORD_SIZE"

	// EnvLogLevel is one of debug, info, warn, error.
	EnvLogLevel = "RTTI_LOG_LEVEL"

	// EnvLogFormat is one of json, text, console.
	EnvLogFormat = "RTTI_LOG_FORMAT"
)

// Default values
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// DefaultMaxRecordSize is the record limit applied when the configuration does
	// not set one: 256 MiB.
	DefaultMaxRecordSize uint32 = 256 << 20
)
