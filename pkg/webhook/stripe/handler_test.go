package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/usersync/pkg/usersync"
	"github.com/mihaimyh/usersync/pkg/webhook"
	"github.com/mihaimyh/usersync/storage/memory"
)

// signPayload builds a valid Stripe-Signature header for the test secret.
func signPayload(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// eventPayload builds an event envelope ConstructEvent accepts: it checks
// "object": "event" and rejects api_version values off the SDK's release
// train, not just the signature.
func eventPayload(eventType, dataObject string) []byte {
	return []byte(fmt.Sprintf(
		`{"id": "evt_1", "object": "event", "api_version": %q, "type": %q, "data": {"object": %s}}`,
		stripe.APIVersion, eventType, dataObject,
	))
}

func TestHandleWebhook_ValidSignature(t *testing.T) {
	store := memory.New()
	provider := newTestProvider(t, store)

	seedUser(t, store, usersync.Fields{
		usersync.FieldID:    "u1",
		usersync.FieldEmail: "jane@example.com",
	})

	payload := eventPayload("customer.created", `{"id": "cus_1", "email": "jane@example.com"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(t, payload))
	w := httptest.NewRecorder()

	provider.handleWebhook(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"success"`) {
		t.Errorf("expected success body, got %s", w.Body.String())
	}
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	store := memory.New()
	provider := newTestProvider(t, store)

	payload := []byte(`{"id": "evt_1", "type": "customer.created", "data": {"object": {}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()

	provider.handleWebhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad signature, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), webhook.ErrInvalidSignature.Error()) {
		t.Errorf("expected signature error body, got %s", w.Body.String())
	}
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	store := memory.New()
	provider := newTestProvider(t, store)

	payload := []byte(`{"id": "evt_1", "type": "customer.created", "data": {"object": {}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(string(payload)))
	w := httptest.NewRecorder()

	provider.handleWebhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing signature, got %d", w.Code)
	}
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	store := memory.New()
	provider := newTestProvider(t, store)

	req := httptest.NewRequest(http.MethodGet, "/webhook/payment", nil)
	w := httptest.NewRecorder()

	provider.handleWebhook(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestHandleWebhook_SkippedEventStillSucceeds(t *testing.T) {
	store := memory.New()
	provider := newTestProvider(t, store)

	// No user in the store: the event cannot correlate, but the delivery
	// must still be acknowledged so Stripe does not retry.
	payload := eventPayload("customer.created", `{"id": "cus_1", "email": "nobody@example.com"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(t, payload))
	w := httptest.NewRecorder()

	provider.handleWebhook(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for skipped event, got %d", w.Code)
	}
}

func TestNewProvider_RequiresStoreAndSecret(t *testing.T) {
	if _, err := NewProvider(Config{WebhookSecret: "whsec_x"}); err == nil {
		t.Error("expected error without a store")
	}

	if _, err := NewProvider(Config{
		Config: webhook.Config{Users: memory.New()},
	}); err == nil {
		t.Error("expected error without a secret")
	}
}
