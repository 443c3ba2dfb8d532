package monitoring

import (
	"context"
	"fmt"
	"time"
)

// ObservabilityHook defines hooks for monitoring serialization operations
type ObservabilityHook interface {
	// Called before an encode or decode starts
	OnProcessStart(ctx context.Context, operation string, metadata map[string]any)

	// Called after an encode or decode completes (success or failure)
	OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any)

	// Called when errors occur
	OnError(ctx context.Context, operation string, err error, metadata map[string]any)

	// Called once per successful type registration
	OnTypeRegistered(typeID uint32, typeName string, fieldCount int)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (n *NoOpObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnTypeRegistered(typeID uint32, typeName string, fieldCount int) {}

// Logger defines the interface for logging
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// LoggingObservabilityHook logs all operations
type LoggingObservabilityHook struct {
	logger Logger
}

// NewLoggingObservabilityHook creates a new logging observability hook. A nil
// logger falls back to a JSON structured logger on stdout.
func NewLoggingObservabilityHook(logger Logger) *LoggingObservabilityHook {
	if logger == nil {
		logger = NewProductionLogger("rtti")
	}
	return &LoggingObservabilityHook{
		logger: logger,
	}
}

func (l *LoggingObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	l.logger.Debug("Operation started: %s, metadata: %v", operation, metadata)
}

func (l *LoggingObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	if err != nil {
		l.logger.Error("Operation failed: %s, duration: %v, error: %v, metadata: %v", operation, duration, err, metadata)
	} else {
		l.logger.Info("Operation completed: %s, duration: %v, metadata: %v", operation, duration, metadata)
	}
}

func (l *LoggingObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	l.logger.Error("Operation error: %s, error: %v, metadata: %v", operation, err, metadata)
}

func (l *LoggingObservabilityHook) OnTypeRegistered(typeID uint32, typeName string, fieldCount int) {
	l.logger.Debug("Type registered: %s, id: %d, fields: %d", typeName, typeID, fieldCount)
}

// MetricsObservabilityHook collects metrics for operations
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = &NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{
		collector: collector,
	}
}

// operationTags builds the tag set shared by every operation metric.
func operationTags(operation string, metadata map[string]any) map[string]string {
	tags := map[string]string{"operation": operation}
	if typeName, ok := metadata["type_name"].(string); ok {
		tags["type"] = typeName
	}
	return tags
}

func (m *MetricsObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	m.collector.IncrementCounter("rtti.process.started", operationTags(operation, metadata))
}

func (m *MetricsObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	tags := operationTags(operation, metadata)

	if err != nil {
		tags["status"] = "error"
		m.collector.IncrementCounter("rtti.process.failed", tags)
	} else {
		tags["status"] = "success"
		m.collector.IncrementCounter("rtti.process.succeeded", tags)
		if n, ok := metadata["bytes"].(int); ok {
			m.collector.RecordValue("rtti.process.bytes", float64(n), operationTags(operation, metadata))
		}
	}

	m.collector.RecordTiming("rtti.process.duration", duration, tags)
}

func (m *MetricsObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	tags := map[string]string{
		"operation": operation,
		"error":     fmt.Sprintf("%T", err),
	}
	if kind, ok := metadata["error_kind"].(string); ok {
		tags["error_kind"] = kind
	}
	m.collector.IncrementCounter("rtti.errors", tags)
}

func (m *MetricsObservabilityHook) OnTypeRegistered(typeID uint32, typeName string, fieldCount int) {
	m.collector.IncrementCounter("rtti.types.registered", map[string]string{"type": typeName})
	m.collector.SetGauge("rtti.types.fields", float64(fieldCount), map[string]string{"type": typeName})
}

// CompositeObservabilityHook combines multiple hooks
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a new composite hook
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{
		hooks: hooks,
	}
}

func (c *CompositeObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessStart(ctx, operation, metadata)
	}
}

func (c *CompositeObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessComplete(ctx, operation, duration, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnError(ctx, operation, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnTypeRegistered(typeID uint32, typeName string, fieldCount int) {
	for _, hook := range c.hooks {
		hook.OnTypeRegistered(typeID, typeName, fieldCount)
	}
}
