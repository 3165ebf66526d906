// Package observability exposes runtime telemetry: Prometheus collectors
// for the broadcast path and a process health snapshot.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	connectedSessions prometheus.Gauge
	messagesTotal     prometheus.Counter
	deliveryFailures  prometheus.Counter
	broadcastDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		connectedSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chathub_connected_sessions",
			Help: "Number of currently registered live sessions.",
		}),
		messagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_messages_persisted_total",
			Help: "Number of messages durably appended to the store.",
		}),
		deliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_delivery_failures_total",
			Help: "Per-session delivery failures observed during broadcasts.",
		}),
		broadcastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chathub_persist_broadcast_duration_seconds",
			Help:    "Time spent persisting and fanning out one message.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) SessionOpened() {
	m.connectedSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	m.connectedSessions.Dec()
}

func (m *Metrics) MessagePersisted(elapsed time.Duration, failedDeliveries int) {
	m.messagesTotal.Inc()
	m.deliveryFailures.Add(float64(failedDeliveries))
	m.broadcastDuration.Observe(elapsed.Seconds())
}

// Handler serves the collectors of this instance only, not the default
// global registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
