package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records Stripe webhook processing outcomes per event type.
type WebhookMetrics struct {
	processed *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Stripe webhook events processed successfully.",
	}, []string{"event_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_skipped",
		Help: "Stripe webhook events skipped as duplicates or no-ops.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Stripe webhook events that failed processing.",
	}, []string{"event_type"})
	reg.MustRegister(processed, skipped, failed)
	return &WebhookMetrics{
		processed: processed,
		skipped:   skipped,
		failed:    failed,
	}
}

// IncProcessed increments the processed counter for the event type.
func (w *WebhookMetrics) IncProcessed(eventType string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSkipped increments the skipped counter for the event type.
func (w *WebhookMetrics) IncSkipped(eventType string) {
	if w == nil || w.skipped == nil {
		return
	}
	w.skipped.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failed counter for the event type.
func (w *WebhookMetrics) IncFailed(eventType string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}
