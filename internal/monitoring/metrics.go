package monitoring

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// MetricsCollector defines the interface for collecting and reporting metrics
type MetricsCollector interface {
	// Counters
	IncrementCounter(name string, tags map[string]string)
	IncrementCounterBy(name string, value int64, tags map[string]string)

	// Gauges
	SetGauge(name string, value float64, tags map[string]string)

	// Histograms/Timing
	RecordTiming(name string, duration time.Duration, tags map[string]string)
	RecordValue(name string, value float64, tags map[string]string)

	// Flush any buffered metrics
	Flush() error
}

// NoOpMetricsCollector is a no-op implementation of MetricsCollector
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) IncrementCounter(name string, tags map[string]string)                {}
func (n *NoOpMetricsCollector) IncrementCounterBy(name string, value int64, tags map[string]string) {}
func (n *NoOpMetricsCollector) SetGauge(name string, value float64, tags map[string]string)         {}
func (n *NoOpMetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
}
func (n *NoOpMetricsCollector) RecordValue(name string, value float64, tags map[string]string) {}
func (n *NoOpMetricsCollector) Flush() error                                                   { return nil }

// InMemoryMetricsCollector keeps every metric in memory. It is meant for tests and
// for the CLI's summary output.
type InMemoryMetricsCollector struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
	values   map[string][]float64
}

// NewInMemoryMetricsCollector creates a new in-memory metrics collector
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	c := &InMemoryMetricsCollector{}
	c.Reset()
	return c
}

func (m *InMemoryMetricsCollector) IncrementCounter(name string, tags map[string]string) {
	m.IncrementCounterBy(name, 1, tags)
}

func (m *InMemoryMetricsCollector) IncrementCounterBy(name string, value int64, tags map[string]string) {
	key := MetricKey(name, tags)
	m.mu.Lock()
	m.counters[key] += value
	m.mu.Unlock()
}

func (m *InMemoryMetricsCollector) SetGauge(name string, value float64, tags map[string]string) {
	key := MetricKey(name, tags)
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
}

func (m *InMemoryMetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	key := MetricKey(name, tags)
	m.mu.Lock()
	m.timings[key] = append(m.timings[key], duration)
	m.mu.Unlock()
}

func (m *InMemoryMetricsCollector) RecordValue(name string, value float64, tags map[string]string) {
	key := MetricKey(name, tags)
	m.mu.Lock()
	m.values[key] = append(m.values[key], value)
	m.mu.Unlock()
}

func (m *InMemoryMetricsCollector) Flush() error {
	return nil
}

// MetricKey renders name and tags as "name,k1=v1,k2=v2" with tags sorted by key.
func MetricKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return b.String()
}

// GetCounter returns the value of a counter
func (m *InMemoryMetricsCollector) GetCounter(name string, tags map[string]string) int64 {
	key := MetricKey(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// GetGauge returns the value of a gauge
func (m *InMemoryMetricsCollector) GetGauge(name string, tags map[string]string) float64 {
	key := MetricKey(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[key]
}

// GetTimings returns a copy of every recorded timing
func (m *InMemoryMetricsCollector) GetTimings(name string, tags map[string]string) []time.Duration {
	key := MetricKey(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.timings[key])
}

// GetValues returns a copy of every recorded value
func (m *InMemoryMetricsCollector) GetValues(name string, tags map[string]string) []float64 {
	key := MetricKey(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.values[key])
}

// CounterKeys returns the keys of every counter, sorted.
func (m *InMemoryMetricsCollector) CounterKeys() []string {
	m.mu.Lock()
	keys := make([]string, 0, len(m.counters))
	for k := range m.counters {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// Reset clears all metrics
func (m *InMemoryMetricsCollector) Reset() {
	m.mu.Lock()
	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.timings = make(map[string][]time.Duration)
	m.values = make(map[string][]float64)
	m.mu.Unlock()
}
