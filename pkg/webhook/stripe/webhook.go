package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/usersync/pkg/usersync"
	"github.com/mihaimyh/usersync/pkg/webhook"
	"github.com/mihaimyh/usersync/pkg/webhook/internal"
)

// handleWebhook processes incoming Stripe webhook events
func (p *Provider) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	internal.SetSecurityHeaders(w)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Read and validate body (with size limit protection)
	body, err := internal.ReadBodyStrict(w, r, maxBodyBytes)
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			p.metrics.RecordError(providerName, "payload_too_large")
		} else {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			p.metrics.RecordError(providerName, "invalid_payload")
		}
		return
	}

	// Extract signature from header
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		sig = r.Header.Get("stripe-signature")
	}

	// Verify webhook signature
	event, err := stripe.ConstructEvent(body, sig, string(p.webhookSecret))
	if err != nil {
		p.logger.Warn("signature verification failed", usersync.Field{Key: "error", Value: err.Error()})
		http.Error(w, webhook.ErrInvalidSignature.Error(), http.StatusBadRequest)
		p.metrics.RecordError(providerName, "auth_failed")
		return
	}

	eventType := string(event.Type)
	p.logger.Debug("received stripe event", usersync.Field{Key: "event_type", Value: eventType})

	outcome, err := p.HandleEvent(r.Context(), eventType, event.Data.Raw)
	if err != nil {
		// Store failures are the only fatal path; everything the event
		// stream cannot correlate is a skip and still acknowledged.
		p.logger.Error("error handling stripe event",
			usersync.Field{Key: "event_type", Value: eventType},
			usersync.Field{Key: "error", Value: err.Error()},
		)
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		p.metrics.RecordEvent(providerName, eventType, "error")
		p.metrics.RecordError(providerName, "processing_error")
		p.metrics.RecordProcessingDuration(providerName, eventType, time.Since(startTime))
		return
	}

	_ = internal.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})

	p.metrics.RecordEvent(providerName, eventType, string(outcome.Status))
	p.metrics.RecordProcessingDuration(providerName, eventType, time.Since(startTime))
}

// HandleEvent maps a verified Stripe event onto a user record mutation.
// Events are processed independently; missing correlation data (no matching
// user, absent plan id) yields a skipped outcome, never an error, because
// Stripe's at-least-once delivery must not trigger retry storms for events
// this system cannot act on.
func (p *Provider) HandleEvent(ctx context.Context, eventType string, data []byte) (usersync.Outcome, error) {
	switch eventType {
	case "customer.created":
		return p.handleCustomerCreated(ctx, data)
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, data)
	case "customer.subscription.created":
		return p.handleSubscriptionCreated(ctx, data)
	case "customer.subscription.updated":
		return p.handleSubscriptionUpdated(ctx, data)
	case "customer.subscription.deleted":
		return p.handleSubscriptionDeleted(ctx, data)
	default:
		p.logger.Debug("unhandled stripe event type", usersync.Field{Key: "event_type", Value: eventType})
		return usersync.Ignored(), nil
	}
}

// handleCustomerCreated links a freshly created Stripe customer to the user
// record with the same email.
func (p *Provider) handleCustomerCreated(ctx context.Context, data []byte) (usersync.Outcome, error) {
	var customer stripe.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		return usersync.Outcome{}, fmt.Errorf("failed to unmarshal customer: %w", err)
	}

	if customer.Email == "" {
		p.logger.Warn("no email in customer data", usersync.Field{Key: "customer_id", Value: customer.ID})
		return usersync.Skipped("no email in customer data"), nil
	}

	user, err := p.users.GetByEmail(ctx, customer.Email)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if user == nil {
		p.logger.Warn("no user found with email", usersync.Field{Key: "email", Value: customer.Email})
		return usersync.Skipped("no user found with email"), nil
	}

	updated, err := p.users.UpdateStripeInfo(ctx, user.ID, usersync.Fields{
		usersync.FieldStripeCustomerID: customer.ID,
	})
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("linked stripe customer to user",
		usersync.Field{Key: "user_id", Value: user.ID},
		usersync.Field{Key: "customer_id", Value: customer.ID},
	)
	return usersync.Applied(updated), nil
}

// handleCheckoutCompleted links the session's customer id to the user with
// the buyer's email, but never overwrites an existing linkage.
func (p *Provider) handleCheckoutCompleted(ctx context.Context, data []byte) (usersync.Outcome, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return usersync.Outcome{}, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	email := ""
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	if email == "" {
		p.logger.Warn("no email in checkout session data", usersync.Field{Key: "session_id", Value: session.ID})
		return usersync.Skipped("no email in checkout session data"), nil
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if user == nil {
		p.logger.Warn("no user found with email", usersync.Field{Key: "email", Value: email})
		return usersync.Skipped("no user found with email"), nil
	}

	if user.StripeCustomerID != "" {
		return usersync.Skipped("stripe customer id already set"), nil
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	updated, err := p.users.UpdateStripeInfo(ctx, user.ID, usersync.Fields{
		usersync.FieldStripeCustomerID: customerID,
	})
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("linked stripe customer from checkout",
		usersync.Field{Key: "user_id", Value: user.ID},
		usersync.Field{Key: "customer_id", Value: customerID},
	)
	return usersync.Applied(updated), nil
}

// handleSubscriptionCreated marks the linked user as subscribed to the plan.
func (p *Provider) handleSubscriptionCreated(ctx context.Context, data []byte) (usersync.Outcome, error) {
	sub, planID, err := unmarshalSubscription(data)
	if err != nil {
		return usersync.Outcome{}, err
	}

	customerID := subscriptionCustomerID(sub)
	if customerID == "" {
		p.logger.Warn("no customer id in subscription data")
		return usersync.Skipped("no customer id in subscription data"), nil
	}
	if planID == "" {
		p.logger.Warn("no plan id in subscription data", usersync.Field{Key: "customer_id", Value: customerID})
		return usersync.Skipped("no plan id in subscription data"), nil
	}

	user, err := p.users.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if user == nil {
		p.logger.Warn("no user found with stripe customer id", usersync.Field{Key: "customer_id", Value: customerID})
		return usersync.Skipped("no user found with stripe customer id"), nil
	}

	updated, err := p.users.UpdateStripeInfo(ctx, user.ID, usersync.Fields{
		usersync.FieldIsSubscribed: true,
		usersync.FieldStripePlanID: planID,
	})
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("subscription created",
		usersync.Field{Key: "user_id", Value: user.ID},
		usersync.Field{Key: "plan_id", Value: planID},
	)
	return usersync.Applied(updated), nil
}

// handleSubscriptionUpdated refreshes plan and subscription standing. Any
// status outside {active, trialing} (past_due, canceled, unpaid, ...)
// resolves to is_subscribed = false.
func (p *Provider) handleSubscriptionUpdated(ctx context.Context, data []byte) (usersync.Outcome, error) {
	sub, planID, err := unmarshalSubscription(data)
	if err != nil {
		return usersync.Outcome{}, err
	}

	customerID := subscriptionCustomerID(sub)
	if customerID == "" {
		p.logger.Warn("no customer id in subscription data")
		return usersync.Skipped("no customer id in subscription data"), nil
	}

	user, err := p.users.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if user == nil {
		p.logger.Warn("no user found with stripe customer id", usersync.Field{Key: "customer_id", Value: customerID})
		return usersync.Skipped("no user found with stripe customer id"), nil
	}

	subscribed := sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing

	updated, err := p.users.UpdateStripeInfo(ctx, user.ID, usersync.Fields{
		usersync.FieldStripePlanID: planID,
		usersync.FieldIsSubscribed: subscribed,
	})
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("subscription updated",
		usersync.Field{Key: "user_id", Value: user.ID},
		usersync.Field{Key: "plan_id", Value: planID},
		usersync.Field{Key: "is_subscribed", Value: subscribed},
	)
	return usersync.Applied(updated), nil
}

// handleSubscriptionDeleted clears the subscription flag. The plan id is
// left in place.
func (p *Provider) handleSubscriptionDeleted(ctx context.Context, data []byte) (usersync.Outcome, error) {
	sub, _, err := unmarshalSubscription(data)
	if err != nil {
		return usersync.Outcome{}, err
	}

	customerID := subscriptionCustomerID(sub)
	if customerID == "" {
		p.logger.Warn("no customer id in subscription data")
		return usersync.Skipped("no customer id in subscription data"), nil
	}

	user, err := p.users.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if user == nil {
		p.logger.Warn("no user found with stripe customer id", usersync.Field{Key: "customer_id", Value: customerID})
		return usersync.Skipped("no user found with stripe customer id"), nil
	}

	updated, err := p.users.UpdateStripeInfo(ctx, user.ID, usersync.Fields{
		usersync.FieldIsSubscribed: false,
	})
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("subscription deleted", usersync.Field{Key: "user_id", Value: user.ID})
	return usersync.Applied(updated), nil
}

// unmarshalSubscription decodes the typed subscription plus the legacy
// plan.id, which the v83 SDK struct no longer carries but webhook payloads
// still include.
func unmarshalSubscription(data []byte) (*stripe.Subscription, string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	var raw struct {
		Plan struct {
			ID string `json:"id"`
		} `json:"plan"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal subscription plan: %w", err)
	}

	return &sub, raw.Plan.ID, nil
}

func subscriptionCustomerID(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}
