// Package metrics records how long gateway lifecycle operations and
// readiness waits take, so slow environments show up in test reports.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultNamespace is the default namespace used for all metrics.
	DefaultNamespace = "gwsuite"
)

var (
	registry     RegistererGatherer = prometheus.NewRegistry()
	registryLock                    = sync.RWMutex{}

	// DefaultBuckets suit operations between a few milliseconds and several minutes.
	DefaultBuckets = []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90, 180, 300}
)

// RegistererGatherer combines the Registerer and Gatherer interfaces from the
// Prometheus metrics library.
type RegistererGatherer interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Metric defines a base interface for metrics.
type Metric interface {
	Labels() []string
}

// Label defines a name-value pair for labeling metrics.
type Label struct {
	Name  string
	Value string
}

// Counter defines the interface for a counter metric.
type Counter interface {
	Metric
	Inc(...Label)
	Reset()
}

type prometheusCounter struct {
	m      *prometheus.CounterVec
	labels []string
}

// CounterOpts defines options for creating a counter metric.
type CounterOpts prometheus.CounterOpts

// NewCounter creates a new counter metric and registers it in the current registry.
func NewCounter(opts CounterOpts, labels []string) Counter {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	c := &prometheusCounter{
		m:      prometheus.NewCounterVec(prometheus.CounterOpts(opts), labels),
		labels: labels,
	}
	mustRegister(opts.Name, c.m)
	return c
}

func (c *prometheusCounter) Labels() []string {
	return c.labels
}

func (c *prometheusCounter) Inc(labels ...Label) {
	if !Active() {
		return
	}
	c.m.WithLabelValues(labelValues(c, labels)...).Inc()
}

func (c *prometheusCounter) Reset() {
	c.m.Reset()
}

// Histogram defines the interface for a histogram metric.
type Histogram interface {
	Metric
	Observe(float64, ...Label)
	Reset()
}

type prometheusHistogram struct {
	m      *prometheus.HistogramVec
	labels []string
}

// HistogramOpts defines options for creating a histogram metric.
type HistogramOpts prometheus.HistogramOpts

// NewHistogram creates a new histogram metric and registers it in the current registry.
func NewHistogram(opts HistogramOpts, labels []string) Histogram {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if len(opts.Buckets) == 0 {
		opts.Buckets = DefaultBuckets
	}
	h := &prometheusHistogram{
		m:      prometheus.NewHistogramVec(prometheus.HistogramOpts(opts), labels),
		labels: labels,
	}
	mustRegister(opts.Name, h.m)
	return h
}

func (h *prometheusHistogram) Labels() []string {
	return h.labels
}

func (h *prometheusHistogram) Observe(value float64, labels ...Label) {
	if !Active() {
		return
	}
	h.m.WithLabelValues(labelValues(h, labels)...).Observe(value)
}

func (h *prometheusHistogram) Reset() {
	h.m.Reset()
}

// Gauge defines the interface for a gauge metric.
type Gauge interface {
	Metric
	Add(float64, ...Label)
	Sub(float64, ...Label)
	Reset()
}

type prometheusGauge struct {
	m      *prometheus.GaugeVec
	labels []string
}

// GaugeOpts defines options for creating a gauge metric.
type GaugeOpts prometheus.GaugeOpts

// NewGauge creates a new gauge metric and registers it in the current registry.
func NewGauge(opts GaugeOpts, labels []string) Gauge {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	g := &prometheusGauge{
		m:      prometheus.NewGaugeVec(prometheus.GaugeOpts(opts), labels),
		labels: labels,
	}
	mustRegister(opts.Name, g.m)
	return g
}

func (g *prometheusGauge) Labels() []string {
	return g.labels
}

func (g *prometheusGauge) Add(value float64, labels ...Label) {
	if !Active() {
		return
	}
	g.m.WithLabelValues(labelValues(g, labels)...).Add(value)
}

func (g *prometheusGauge) Sub(value float64, labels ...Label) {
	if !Active() {
		return
	}
	g.m.WithLabelValues(labelValues(g, labels)...).Sub(value)
}

func (g *prometheusGauge) Reset() {
	g.m.Reset()
}

// labelValues orders labels the way the metric declares them. Missing labels are empty.
func labelValues(metric Metric, labels []Label) []string {
	byName := make(map[string]string, len(labels))
	for _, label := range labels {
		byName[label.Name] = label.Value
	}
	values := make([]string, 0, len(metric.Labels()))
	for _, name := range metric.Labels() {
		values = append(values, byName[name])
	}
	return values
}

func mustRegister(name string, c prometheus.Collector) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	if err := registry.Register(c); err != nil {
		panic("failed to register metric " + name + ": " + err.Error())
	}
}

// GetPromCollector returns the underlying collector for any valid prometheus metric.
// This is exported for testing purposes.
func GetPromCollector(c any) prometheus.Collector {
	switch c := c.(type) {
	case *prometheusCounter:
		return c.m
	case *prometheusHistogram:
		return c.m
	case *prometheusGauge:
		return c.m
	}
	return nil
}

var disabled uint32

// SetActive enables or disables recording for every metric.
func SetActive(active bool) {
	if active {
		atomic.StoreUint32(&disabled, 0)
	} else {
		atomic.StoreUint32(&disabled, 1)
	}
}

// Active checks if metrics are globally active.
func Active() bool {
	return atomic.LoadUint32(&disabled) == 0
}

// Registry returns the metrics registry.
func Registry() RegistererGatherer {
	registryLock.RLock()
	defer registryLock.RUnlock()
	return registry
}

// SetRegistry replaces the registry used by metrics created afterwards.
func SetRegistry(r RegistererGatherer) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry = r
}
