// Package stripe normalizes Stripe webhook events into payment-linkage
// updates on the user store.
package stripe

import (
	"net/http"
	"strings"
	"time"

	"github.com/mihaimyh/usersync/pkg/usersync"
	"github.com/mihaimyh/usersync/pkg/webhook"
	"github.com/mihaimyh/usersync/pkg/webhook/internal"
)

const (
	providerName             = "stripe"
	maxBodyBytes             = 256 * 1024
	defaultRateLimitWindow   = time.Minute
	defaultRateLimitRequests = 100
)

// Config extends webhook.Config with Stripe-specific options
type Config struct {
	webhook.Config // Base config (Users, Logger, Metrics)

	// WebhookSecret is the endpoint signing secret (whsec_...) used to
	// verify the Stripe-Signature header. Required.
	WebhookSecret string
}

// Provider implements the webhook.Provider interface for Stripe
type Provider struct {
	users         usersync.UserStore
	logger        usersync.Logger
	metrics       webhook.Metrics
	rateLimiter   *internal.RateLimiter
	webhookSecret []byte
}

// NewProvider creates a new Stripe webhook provider
func NewProvider(config Config) (*Provider, error) {
	if config.Users == nil {
		return nil, webhook.ErrProviderNotConfigured
	}

	secret := strings.TrimSpace(config.WebhookSecret)
	if secret == "" {
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
		users:         config.Users,
		logger:        logger,
		metrics:       metrics,
		rateLimiter:   internal.NewRateLimiter(defaultRateLimitRequests, defaultRateLimitWindow),
		webhookSecret: []byte(secret),
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// WebhookHandler returns the HTTP handler for Stripe webhooks
func (p *Provider) WebhookHandler() http.Handler {
	return p.rateLimiter.Middleware(http.HandlerFunc(p.handleWebhook))
}
