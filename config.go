package rtti

import (
	"fmt"
	"io"

	"github.com/hengadev/errsx"

	"github.com/hengadev/rtti/internal/monitoring"
)

// Config holds the settings a Serializer can be built from with NewFromConfig.
//
// Configuration can come from code, from the environment (LoadConfigFromEnvironment),
// from a .env file (LoadConfigFromEnvFile) or from YAML (LoadConfigFromFile).
//
// Example:
//
//	cfg := rtti.Config{
//	    ValidateSizes: true,
//	    MaxRecordSize: 64 << 20,
//	    LogLevel:      "debug",
//	    LogFormat:     "console",
//	}
//	s, err := rtti.NewFromConfig(cfg, rtti.WithRegistry(reg))
type Config struct {
	// ValidateSizes compares every predicted record size with the bytes written.
	// Always on in builds tagged rttidebug.
	ValidateSizes bool `yaml:"validate_sizes"`

	// MaxRecordSize rejects decoded records that declare more bytes than this.
	// Zero means DefaultMaxRecordSize once Validate has run.
	MaxRecordSize uint32 `yaml:"max_record_size"`

	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level"`

	// LogFormat is one of json, text, console. Default: json
	LogFormat string `yaml:"log_format"`

	// LogOutput is where logs go. Default: stdout
	LogOutput io.Writer `yaml:"-"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		MaxRecordSize: DefaultMaxRecordSize,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// Validate checks the configuration and applies defaults to empty fields. Every
// problem is reported at once.
func (c *Config) Validate() error {
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = DefaultMaxRecordSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}

	errs := make(errsx.Map)
	if c.MaxRecordSize < nilRecordSize {
		errs.Set("max_record_size", fmt.Sprintf("must be at least %d bytes, got %d", nilRecordSize, c.MaxRecordSize))
	}
	if _, err := monitoring.ParseLogLevel(c.LogLevel); err != nil {
		errs.Set("log_level", err)
	}
	if _, err := monitoring.ParseLogFormat(c.LogFormat); err != nil {
		errs.Set("log_format", err)
	}
	if errs.IsEmpty() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
}

// Logger builds the structured logger described by the configuration.
func (c Config) Logger() (*StructuredLogger, error) {
	level, err := monitoring.ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := monitoring.ParseLogFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}
	return monitoring.NewStructuredLogger(monitoring.LoggerConfig{
		Level:     level,
		Format:    format,
		Output:    c.LogOutput,
		Component: "serializer",
	}), nil
}
