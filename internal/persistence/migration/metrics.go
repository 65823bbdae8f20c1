package migration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instruments for migration runs on a private
// registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Applied  prometheus.Counter
	Failures *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Pending  prometheus.Gauge
	LastRun  prometheus.Gauge
}

// NewMetrics creates the migration instruments under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "applied_total",
			Help:      "Total number of migrations applied",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "failures_total",
			Help:      "Total number of failed migrations by phase",
		}, []string{"migration", "phase"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "duration_seconds",
			Help:      "Duration of individual migrations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"migration"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "pending",
			Help:      "Number of migrations not yet applied",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
	reg.MustRegister(m.Applied, m.Failures, m.Duration, m.Pending, m.LastRun)
	return m
}

// Registry returns the registry holding the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current values in the node_exporter textfile
// format, for one-shot processes that cannot be scraped.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeApplied(name string, took time.Duration) {
	if m == nil {
		return
	}
	m.Applied.Inc()
	m.Duration.WithLabelValues(name).Observe(took.Seconds())
	m.Pending.Dec()
}

func (m *Metrics) observeFailure(name, phase string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(name, phase).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}

func (m *Metrics) markSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(at.Unix()))
}
