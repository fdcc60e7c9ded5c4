// Package metrics holds the process-wide Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts PBX webhook deliveries by event type and
	// whether processing succeeded.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phonebridge",
		Name:      "webhook_events_total",
		Help:      "PBX webhook deliveries by event type and outcome.",
	}, []string{"event", "outcome"})

	// PopupOutcomes counts popup dispatch attempts by resulting status.
	PopupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phonebridge",
		Name:      "popup_outcomes_total",
		Help:      "Popup dispatch attempts by final status.",
	}, []string{"status"})

	// PopupResponseTime observes CRM popup API latency in seconds.
	PopupResponseTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "phonebridge",
		Name:      "popup_response_seconds",
		Help:      "CRM popup API response time.",
		Buckets:   prometheus.DefBuckets,
	})
)
