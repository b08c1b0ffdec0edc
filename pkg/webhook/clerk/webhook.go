package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mihaimyh/usersync/pkg/usersync"
	"github.com/mihaimyh/usersync/pkg/webhook/internal"
)

// eventEnvelope is the identity provider's webhook body: {type, data}.
type eventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// handleWebhook processes incoming identity webhook events
func (p *Provider) handleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	internal.SetSecurityHeaders(w)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := internal.ReadBodyStrict(w, r, maxBodyBytes)
	if err != nil {
		if errors.Is(err, internal.ErrPayloadTooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			p.metrics.RecordError(providerName, "payload_too_large")
		} else {
			_ = internal.WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid webhook payload"})
			p.metrics.RecordError(providerName, "invalid_payload")
		}
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		_ = internal.WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid webhook payload"})
		p.metrics.RecordError(providerName, "invalid_payload")
		return
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		_ = internal.WriteJSON(w, http.StatusBadRequest,
			map[string]string{"detail": "invalid webhook payload: missing user data"})
		p.metrics.RecordError(providerName, "invalid_payload")
		return
	}

	eventType := envelope.Type
	p.logger.Debug("received identity event", usersync.Field{Key: "event_type", Value: eventType})

	details, err := ExtractUserDetails(envelope.Data)
	if err != nil {
		_ = internal.WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		p.metrics.RecordError(providerName, "invalid_payload")
		return
	}

	outcome, err := p.HandleUserEvent(r.Context(), eventType, details)
	if err != nil {
		p.logger.Error("error processing identity event",
			usersync.Field{Key: "event_type", Value: eventType},
			usersync.Field{Key: "error", Value: err.Error()},
		)
		_ = internal.WriteJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		p.metrics.RecordEvent(providerName, eventType, "error")
		p.metrics.RecordError(providerName, "processing_error")
		p.metrics.RecordProcessingDuration(providerName, eventType, time.Since(startTime))
		return
	}

	// Echo the extracted fields back alongside the status, matching the
	// response contract the identity provider's dashboard displays.
	response := map[string]any{
		"status":     "success",
		"event_type": eventType,
	}
	for key, value := range details {
		response[key] = value
	}
	_ = internal.WriteJSON(w, http.StatusOK, response)

	p.metrics.RecordEvent(providerName, eventType, string(outcome.Status))
	p.metrics.RecordProcessingDuration(providerName, eventType, time.Since(startTime))
}

// HandleUserEvent dispatches a canonical user-detail record to the store.
// Creates and deletes are idempotent; updates require the record to exist.
func (p *Provider) HandleUserEvent(ctx context.Context, eventType string, details usersync.Fields) (usersync.Outcome, error) {
	switch eventType {
	case "user.created":
		return p.handleUserCreated(ctx, details)
	case "user.updated":
		return p.handleUserUpdated(ctx, details)
	case "user.deleted":
		return p.handleUserDeleted(ctx, details)
	default:
		p.logger.Debug("unhandled identity event type", usersync.Field{Key: "event_type", Value: eventType})
		return usersync.Ignored(), nil
	}
}

func (p *Provider) handleUserCreated(ctx context.Context, details usersync.Fields) (usersync.Outcome, error) {
	userID := details.String(usersync.FieldID)
	if userID == "" {
		return usersync.Outcome{}, usersync.ErrMissingUserID
	}

	existing, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if existing != nil {
		// Redelivered create: hand back the first-created record unchanged.
		p.logger.Info("user already exists", usersync.Field{Key: "user_id", Value: userID})
		return usersync.Outcome{Status: usersync.OutcomeSkipped, Reason: "user already exists", User: existing}, nil
	}

	created, err := p.users.Insert(ctx, details)
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("user created", usersync.Field{Key: "user_id", Value: userID})
	return usersync.Applied(created), nil
}

func (p *Provider) handleUserUpdated(ctx context.Context, details usersync.Fields) (usersync.Outcome, error) {
	userID := details.String(usersync.FieldID)
	if userID == "" {
		return usersync.Outcome{}, usersync.ErrMissingUserID
	}

	existing, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if existing == nil {
		return usersync.Outcome{}, fmt.Errorf("%w: %s", usersync.ErrUserNotFound, userID)
	}

	updated, err := p.users.Update(ctx, userID, details)
	if err != nil {
		return usersync.Outcome{}, err
	}

	p.logger.Info("user updated", usersync.Field{Key: "user_id", Value: userID})
	return usersync.Applied(updated), nil
}

func (p *Provider) handleUserDeleted(ctx context.Context, details usersync.Fields) (usersync.Outcome, error) {
	userID := details.String(usersync.FieldID)
	if userID == "" {
		return usersync.Outcome{}, usersync.ErrMissingUserID
	}

	deleted, err := p.users.Delete(ctx, userID)
	if err != nil {
		return usersync.Outcome{}, err
	}
	if !deleted {
		// Redelivered delete: already gone is success.
		p.logger.Warn("user not found for deletion", usersync.Field{Key: "user_id", Value: userID})
		return usersync.Skipped("user not found"), nil
	}

	p.logger.Info("user deleted", usersync.Field{Key: "user_id", Value: userID})
	return usersync.Applied(nil), nil
}
