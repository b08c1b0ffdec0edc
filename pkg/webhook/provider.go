// Package webhook defines the shared contract for inbound webhook providers.
// Each provider verifies and parses its own payloads, then normalizes events
// into mutations on the user store.
package webhook

import (
	"net/http"

	"github.com/mihaimyh/usersync/pkg/usersync"
)

// Provider is the generic interface that any webhook source must implement.
// This keeps the HTTP wiring identical whether events come from the payments
// provider or the identity provider.
type Provider interface {
	// Name returns the provider name (e.g., "stripe", "clerk")
	Name() string

	// WebhookHandler returns the HTTP handler that processes inbound events.
	// The implementation handles verification, parsing, and store updates
	// internally.
	WebhookHandler() http.Handler
}

// Config holds the collaborators shared by every provider.
type Config struct {
	// Users is the record store mutated by normalized events. Required.
	Users usersync.UserStore

	// Logger receives structured processing logs. Optional; defaults to
	// a no-op logger.
	Logger usersync.Logger

	// Metrics receives webhook counters and timings. Optional; defaults
	// to NoopMetrics.
	Metrics Metrics
}
