// Package clerk normalizes identity-provider webhook payloads into create,
// update and delete operations on the user store.
package clerk

import (
	"net/http"
	"time"

	"github.com/mihaimyh/usersync/pkg/usersync"
	"github.com/mihaimyh/usersync/pkg/webhook"
	"github.com/mihaimyh/usersync/pkg/webhook/internal"
)

const (
	providerName             = "clerk"
	maxBodyBytes             = 256 * 1024
	defaultRateLimitWindow   = time.Minute
	defaultRateLimitRequests = 100
)

// Config holds the collaborators for the identity webhook provider.
type Config struct {
	webhook.Config // Base config (Users, Logger, Metrics)
}

// Provider implements the webhook.Provider interface for the identity provider
type Provider struct {
	users       usersync.UserStore
	logger      usersync.Logger
	metrics     webhook.Metrics
	rateLimiter *internal.RateLimiter
}

// NewProvider creates a new identity webhook provider
func NewProvider(config Config) (*Provider, error) {
	if config.Users == nil {
		return nil, webhook.ErrProviderNotConfigured
	}

	logger := config.Logger
	if logger == nil {
		logger = &usersync.NoopLogger{}
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &webhook.NoopMetrics{}
	}

	return &Provider{
		users:       config.Users,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: internal.NewRateLimiter(defaultRateLimitRequests, defaultRateLimitWindow),
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// WebhookHandler returns the HTTP handler for identity webhooks
func (p *Provider) WebhookHandler() http.Handler {
	return p.rateLimiter.Middleware(http.HandlerFunc(p.handleWebhook))
}
