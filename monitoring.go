package rtti

import (
	"github.com/hengadev/rtti/internal/monitoring"
)

// ObservabilityHook is notified around every serialize and deserialize call and
// on every type registration.
type ObservabilityHook = monitoring.ObservabilityHook

// MetricsCollector receives counters, gauges and timings.
type MetricsCollector = monitoring.MetricsCollector

type (
	NoOpObservabilityHook    = monitoring.NoOpObservabilityHook
	NoOpMetricsCollector     = monitoring.NoOpMetricsCollector
	InMemoryMetricsCollector = monitoring.InMemoryMetricsCollector
	StructuredLogger         = monitoring.StructuredLogger
	LoggerConfig             = monitoring.LoggerConfig
	LogLevel                 = monitoring.LogLevel
	LogFormat                = monitoring.LogFormat
)

const (
	LevelDebug = monitoring.LevelDebug
	LevelInfo  = monitoring.LevelInfo
	LevelWarn  = monitoring.LevelWarn
	LevelError = monitoring.LevelError

	FormatJSON    = monitoring.FormatJSON
	FormatText    = monitoring.FormatText
	FormatConsole = monitoring.FormatConsole
)

// NewInMemoryMetricsCollector returns a collector that keeps every metric in
// memory.
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return monitoring.NewInMemoryMetricsCollector()
}

// NewMetricsObservabilityHook reports operations to collector.
func NewMetricsObservabilityHook(collector MetricsCollector) ObservabilityHook {
	return monitoring.NewMetricsObservabilityHook(collector)
}

// NewLoggingObservabilityHook logs operations to logger.
func NewLoggingObservabilityHook(logger *StructuredLogger) ObservabilityHook {
	if logger == nil {
		return monitoring.NewLoggingObservabilityHook(nil)
	}
	return monitoring.NewLoggingObservabilityHook(logger)
}

// NewCompositeObservabilityHook fans every notification out to hooks.
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) ObservabilityHook {
	return monitoring.NewCompositeObservabilityHook(hooks...)
}

// NewStructuredLogger builds a slog-backed logger.
func NewStructuredLogger(cfg LoggerConfig) *StructuredLogger {
	return monitoring.NewStructuredLogger(cfg)
}
