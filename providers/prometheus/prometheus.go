// Package prometheus exports serializer metrics through a Prometheus registry.
package prometheus

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/hengadev/rtti"
)

const defaultNamespace = "rtti"

// timings are in milliseconds
var timingBuckets = prometheus.ExponentialBuckets(0.05, 2, 16)

// Label sets of the metrics the serializer hooks emit. Tags on these are
// optional, so the first call cannot be trusted to carry all of them.
var knownLabels = map[string][]string{
	"rtti.process.started":   {"operation", "type"},
	"rtti.process.succeeded": {"operation", "status", "type"},
	"rtti.process.failed":    {"operation", "status", "type"},
	"rtti.process.bytes":     {"operation", "type"},
	"rtti.process.duration":  {"operation", "status", "type"},
	"rtti.errors":            {"error", "error_kind", "operation"},
	"rtti.types.registered":  {"type"},
	"rtti.types.fields":      {"type"},
}

// Collector implements rtti.MetricsCollector. Every metric name gets one vector.
// Its label names are fixed for the serializer's own metrics and are otherwise the
// tag keys seen on first use; later tags missing a label report it empty and
// extra tags are dropped.
type Collector struct {
	namespace  string
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	labels     map[string][]string
	errs       []error
}

var _ rtti.MetricsCollector = (*Collector)(nil)

// Option configures a Collector.
type Option func(*Collector) error

// WithNamespace prefixes every metric name. The default is "rtti"; metric names
// already starting with the namespace are not prefixed twice.
func WithNamespace(ns string) Option {
	return func(c *Collector) error {
		if ns == "" {
			return fmt.Errorf("namespace must not be empty")
		}
		c.namespace = sanitize(ns)
		return nil
	}
}

// WithRegistry registers metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Collector) error {
		if reg == nil {
			return fmt.Errorf("registry must not be nil")
		}
		c.registerer = reg
		c.gatherer = reg
		return nil
	}
}

func New(opts ...Option) (*Collector, error) {
	reg := prometheus.NewRegistry()
	c := &Collector{
		namespace:  defaultNamespace,
		registerer: reg,
		gatherer:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labels:     make(map[string][]string),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("apply prometheus option: %w", err)
		}
	}
	return c, nil
}

// Gatherer returns the registry the collector writes to.
func (c *Collector) Gatherer() prometheus.Gatherer { return c.gatherer }

func (c *Collector) IncrementCounter(name string, tags map[string]string) {
	c.IncrementCounterBy(name, 1, tags)
}

func (c *Collector) IncrementCounterBy(name string, value int64, tags map[string]string) {
	if value < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.counters[name]
	if !ok {
		labels := c.labelNames(name, tags)
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: c.metricName(name) + "_total",
			Help: fmt.Sprintf("Counter %s.", name),
		}, labels)
		if !c.register(name, vec) {
			return
		}
		c.counters[name] = vec
	}
	vec.WithLabelValues(c.labelValues(name, tags)...).Add(float64(value))
}

func (c *Collector) SetGauge(name string, value float64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: c.metricName(name),
			Help: fmt.Sprintf("Gauge %s.", name),
		}, c.labelNames(name, tags))
		if !c.register(name, vec) {
			return
		}
		c.gauges[name] = vec
	}
	vec.WithLabelValues(c.labelValues(name, tags)...).Set(value)
}

func (c *Collector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	c.observe(name, "_milliseconds", timingBuckets, float64(duration)/float64(time.Millisecond), tags)
}

func (c *Collector) RecordValue(name string, value float64, tags map[string]string) {
	c.observe(name, "", prometheus.ExponentialBuckets(16, 4, 10), value, tags)
}

func (c *Collector) observe(name, suffix string, buckets []float64, value float64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    c.metricName(name) + suffix,
			Help:    fmt.Sprintf("Distribution of %s.", name),
			Buckets: buckets,
		}, c.labelNames(name, tags))
		if !c.register(name, vec) {
			return
		}
		c.histograms[name] = vec
	}
	vec.WithLabelValues(c.labelValues(name, tags)...).Observe(value)
}

// Flush reports the registration failures seen so far and forgets them.
func (c *Collector) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := errors.Join(c.errs...)
	c.errs = nil
	return err
}

// WriteText writes every gathered metric in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func (c *Collector) register(name string, col prometheus.Collector) bool {
	if err := c.registerer.Register(col); err != nil {
		c.errs = append(c.errs, fmt.Errorf("register %s: %w", name, err))
		delete(c.labels, name)
		return false
	}
	return true
}

func (c *Collector) labelNames(name string, tags map[string]string) []string {
	if labels, ok := c.labels[name]; ok {
		return labels
	}
	if labels, ok := knownLabels[name]; ok {
		c.labels[name] = labels
		return labels
	}
	labels := make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, sanitize(k))
	}
	slices.Sort(labels)
	labels = slices.Compact(labels)
	c.labels[name] = labels
	return labels
}

func (c *Collector) labelValues(name string, tags map[string]string) []string {
	labels := c.labels[name]
	values := make([]string, len(labels))
	for k, v := range tags {
		if i, ok := slices.BinarySearch(labels, sanitize(k)); ok {
			values[i] = v
		}
	}
	return values
}

func (c *Collector) metricName(name string) string {
	n := sanitize(name)
	if strings.HasPrefix(n, c.namespace+"_") {
		return n
	}
	return c.namespace + "_" + n
}

// sanitize maps a dotted metric or tag name onto the Prometheus name charset.
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
