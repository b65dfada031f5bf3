// Package metrics exposes Prometheus instrumentation for synchronization, usage resets
// and the remote proxy backend. Every Metrics method is safe to call on a nil receiver.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for batch counters.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	batchItems  *prometheus.CounterVec
	resetTicks  *prometheus.CounterVec
	queueEvents *prometheus.CounterVec
	queueDepth  prometheus.Gauge
}

// New builds the service metrics in a dedicated registry under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Users processed by synchronization batches, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		resetTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "ticks_total",
			Help:      "Usage reset scheduler ticks, by whether a billing cycle started.",
		}, []string{"cycle_start"}),
		queueEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "events_total",
			Help:      "Sync events handled by the queue, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Sync events waiting for a worker.",
		}),
	}
	m.registry.MustRegister(m.batchItems, m.resetTicks, m.queueEvents, m.queueDepth)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Register adds an extra collector, such as a SystemCollector, to the registry.
func (m *Metrics) Register(c prometheus.Collector) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(c)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBatch(operation string, succeeded, failed, skipped int) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(operation, OutcomeSucceeded).Add(float64(succeeded))
	m.batchItems.WithLabelValues(operation, OutcomeFailed).Add(float64(failed))
	m.batchItems.WithLabelValues(operation, OutcomeSkipped).Add(float64(skipped))
}

func (m *Metrics) ObserveResetTick(cycleStart bool) {
	if m == nil {
		return
	}
	label := "false"
	if cycleStart {
		label = "true"
	}
	m.resetTicks.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveEvent(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
	}
	m.queueEvents.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
