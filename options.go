package rtti

import (
	"fmt"
)

// Option configures a Serializer.
type Option func(s *Serializer) error

// WithRegistry makes the serializer resolve types in reg instead of the default
// registry.
func WithRegistry(reg *Registry) Option {
	return func(s *Serializer) error {
		if reg == nil {
			return fmt.Errorf("registry must not be nil")
		}
		s.registry = reg
		return nil
	}
}

// WithSizeValidation compares every predicted size with the bytes actually
// written and fails with ErrSizeMismatch on disagreement. It is always on in
// builds tagged rttidebug.
func WithSizeValidation(enabled bool) Option {
	return func(s *Serializer) error {
		s.validateSizes = enabled || debugBuild
		return nil
	}
}

// WithMaxRecordSize rejects, on decode, any record whose size header declares more
// than limit bytes. Zero disables the limit.
func WithMaxRecordSize(limit uint32) Option {
	return func(s *Serializer) error {
		if limit != 0 && limit < nilRecordSize {
			return fmt.Errorf("max record size %d is smaller than the smallest record (%d bytes)", limit, nilRecordSize)
		}
		s.maxRecordSize = limit
		return nil
	}
}

// WithObservabilityHook adds a hook notified around every operation. Hooks
// accumulate; passing several options installs all of them.
func WithObservabilityHook(hook ObservabilityHook) Option {
	return func(s *Serializer) error {
		if hook == nil {
			return fmt.Errorf("observability hook must not be nil")
		}
		s.hooks = append(s.hooks, hook)
		return nil
	}
}

// WithMetricsCollector reports operation counters and timings to collector.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(s *Serializer) error {
		if collector == nil {
			return fmt.Errorf("metrics collector must not be nil")
		}
		s.hooks = append(s.hooks, NewMetricsObservabilityHook(collector))
		return nil
	}
}

// WithLogger logs every operation to logger.
func WithLogger(logger *StructuredLogger) Option {
	return func(s *Serializer) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		s.hooks = append(s.hooks, NewLoggingObservabilityHook(logger))
		return nil
	}
}
