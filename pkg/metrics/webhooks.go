package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics tracks payment notification processing.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	reconciled *prometheus.CounterVec
	duplicates prometheus.Counter
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_received",
		Help: "Payment notifications received, by topic.",
	}, []string{"topic"})
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_orders_reconciled",
		Help: "Orders reconciled from a notification, by payment status.",
	}, []string{"status"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_duplicate_notifications",
		Help: "Notifications skipped because the order was already reconciled.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_processing_failures",
		Help: "Notifications that failed processing, by stage.",
	}, []string{"stage"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_duration_seconds",
		Help:    "End-to-end notification processing time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	reg.MustRegister(received, reconciled, duplicates, failures, duration)
	return &WebhookMetrics{
		received:   received,
		reconciled: reconciled,
		duplicates: duplicates,
		failures:   failures,
		duration:   duration,
	}
}

// IncReceived counts a notification by topic.
func (w *WebhookMetrics) IncReceived(topic string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncReconciled counts an order reconciled under the given payment status.
func (w *WebhookMetrics) IncReconciled(status string) {
	if w == nil || w.reconciled == nil {
		return
	}
	w.reconciled.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncDuplicate counts a suppressed redelivery.
func (w *WebhookMetrics) IncDuplicate() {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.Inc()
}

// IncFailure counts a processing failure at the named stage.
func (w *WebhookMetrics) IncFailure(stage string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveDuration records processing time for a topic.
func (w *WebhookMetrics) ObserveDuration(topic string, d time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(topic)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
