// Package metrics exposes Prometheus counters for webhooks and deliveries.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaharia-lab/restock-notifier/internal/eventbus"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

const namespace = "restock"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry         *prometheus.Registry
	webhooks         *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	batchSize        prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook requests by result code.",
		}, []string{"code"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-recipient delivery outcomes by terminal state.",
		}, []string{"state"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time from render to terminal state for one recipient.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"state"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Registrations per dispatched batch.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
	}
	m.registry.MustRegister(
		m.webhooks,
		m.deliveries,
		m.deliveryDuration,
		m.batchSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveWebhook counts one webhook response.
func (m *Metrics) ObserveWebhook(code restock.Code) {
	m.webhooks.WithLabelValues(string(code)).Inc()
}

// Listen is an eventbus.Listener that turns dispatch events into metrics.
func (m *Metrics) Listen(e eventbus.Event) {
	switch e.Type {
	case eventbus.EventDeliverySent,
		eventbus.EventDeliverySendFailed,
		eventbus.EventDeliveryDeleteFailed,
		eventbus.EventDeliveryRenderFailed:
		state := e.Payload["state"]
		m.deliveries.WithLabelValues(state).Inc()
		if ms, err := strconv.ParseInt(e.Payload["duration_ms"], 10, 64); err == nil {
			m.deliveryDuration.WithLabelValues(state).Observe(float64(ms) / 1000)
		}
	case eventbus.EventBatchCompleted:
		if n, err := strconv.Atoi(e.Payload["total"]); err == nil {
			m.batchSize.Observe(float64(n))
		}
	}
}
