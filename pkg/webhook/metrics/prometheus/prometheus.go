package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mihaimyh/usersync/pkg/webhook"
)

var _ webhook.Metrics = (*Metrics)(nil)

// Metrics implements webhook.Metrics using Prometheus.
type Metrics struct {
	eventsTotal        *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation for webhook providers.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of webhook events received, by outcome.",
		}, []string{"provider", "event_type", "outcome"}),

		processingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "processing_duration_seconds",
			Help:      "Duration of webhook processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "event_type"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "errors_total",
			Help:      "Total number of webhook processing errors.",
		}, []string{"provider", "error_type"}),
	}
}

func (m *Metrics) RecordEvent(provider, eventType, outcome string) {
	m.eventsTotal.WithLabelValues(provider, eventType, outcome).Inc()
}

func (m *Metrics) RecordProcessingDuration(provider, eventType string, duration time.Duration) {
	m.processingDuration.WithLabelValues(provider, eventType).Observe(duration.Seconds())
}

func (m *Metrics) RecordError(provider, errorType string) {
	m.errorsTotal.WithLabelValues(provider, errorType).Inc()
}
