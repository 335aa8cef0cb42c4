// Package metrics exposes Prometheus instrumentation for the
// persistence helpers. The library never runs its own listener; the
// consuming entrypoint mounts Handler() wherever it serves metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// Collector records persistence operation metrics
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	probeCounter      *prometheus.CounterVec
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the shared collector used by the persistence clients.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector, _ = NewCollector(nil)
	})
	return defaultCollector
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Namespace: "gluu",
			Subsystem: "persistence",
		}
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	collector := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	collector.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "operations_total",
			Help:      "Total number of persistence operations",
		},
		[]string{"backend", "operation", "status"},
	)

	collector.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration of persistence operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"backend", "operation"},
	)

	collector.probeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "host_probes_total",
			Help:      "Total number of host healthcheck probes during resolution",
		},
		[]string{"service", "status"},
	)

	for _, metric := range []prometheus.Collector{
		collector.operationCounter,
		collector.operationDuration,
		collector.probeCounter,
	} {
		if err := collector.registry.Register(metric); err != nil {
			return nil, err
		}
	}

	return collector, nil
}

// RecordOperation records a persistence operation with its outcome
func (c *Collector) RecordOperation(backend, operation string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	c.operationCounter.With(prometheus.Labels{
		"backend":   backend,
		"operation": operation,
		"status":    status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{
		"backend":   backend,
		"operation": operation,
	}).Observe(duration.Seconds())
}

// RecordProbe records a single host healthcheck probe
func (c *Collector) RecordProbe(service string, reachable bool) {
	if !c.config.Enabled {
		return
	}

	status := "reachable"
	if !reachable {
		status = "unreachable"
	}

	c.probeCounter.With(prometheus.Labels{
		"service": service,
		"status":  status,
	}).Inc()
}

// Handler returns the HTTP handler serving this collector's registry
func (c *Collector) Handler() http.Handler {
	if !c.config.Enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
