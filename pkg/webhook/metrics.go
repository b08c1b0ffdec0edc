package webhook

import "time"

// Metrics defines the interface for tracking webhook processing.
// All methods are optional - providers should gracefully handle nil metrics.
type Metrics interface {
	// RecordEvent records a webhook event received from a provider.
	// outcome: "applied", "skipped", "ignored" or "error"
	RecordEvent(provider, eventType, outcome string)

	// RecordProcessingDuration records how long it took to process a webhook.
	RecordProcessingDuration(provider, eventType string, duration time.Duration)

	// RecordError records a webhook processing error.
	// errorType: The type of error (e.g., "auth_failed", "invalid_payload",
	// "store_error")
	RecordError(provider, errorType string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordEvent(_, _, _ string)                            {}
func (n *NoopMetrics) RecordProcessingDuration(_, _ string, _ time.Duration) {}
func (n *NoopMetrics) RecordError(_, _ string)                               {}
