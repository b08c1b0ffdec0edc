package clerk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mihaimyh/usersync/pkg/webhook"
	"github.com/mihaimyh/usersync/storage/memory"
)

func postWebhook(t *testing.T, provider *Provider, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook/identity", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	provider.WebhookHandler().ServeHTTP(rec, req)
	return rec
}

func TestHandleWebhook_UserCreated(t *testing.T) {
	provider, store := newTestProvider(t)

	body := `{
		"type": "user.created",
		"data": {
			"id": "user_1",
			"first_name": "Jane",
			"last_name": "Doe",
			"primary_email_address_id": "em_1",
			"email_addresses": [{"id": "em_1", "email_address": "jane@example.com"}]
		}
	}`

	rec := postWebhook(t, provider, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var response map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if response["status"] != "success" {
		t.Errorf("status = %v, want success", response["status"])
	}
	if response["event_type"] != "user.created" {
		t.Errorf("event_type = %v, want user.created", response["event_type"])
	}
	if response["email"] != "jane@example.com" {
		t.Errorf("email = %v, want extracted field echoed back", response["email"])
	}

	stored, err := store.GetByID(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored == nil || stored.FullName != "Jane Doe" {
		t.Fatalf("stored = %+v, want persisted record", stored)
	}
}

func TestHandleWebhook_MissingData(t *testing.T) {
	provider, _ := newTestProvider(t)

	for _, body := range []string{
		`{"type": "user.created"}`,
		`{"type": "user.created", "data": null}`,
	} {
		rec := postWebhook(t, provider, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "missing user data") {
			t.Errorf("body %s: response = %s, want missing-data detail", body, rec.Body.String())
		}
	}
}

func TestHandleWebhook_InvalidJSON(t *testing.T) {
	provider, _ := newTestProvider(t)

	rec := postWebhook(t, provider, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	provider, _ := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/webhook/identity", nil)
	rec := httptest.NewRecorder()
	provider.WebhookHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleWebhook_DispatchError(t *testing.T) {
	provider, _ := newTestProvider(t)

	// user.updated for a user that was never created surfaces as a 500.
	rec := postWebhook(t, provider, `{"type": "user.updated", "data": {"id": "user_missing"}}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "user not found") {
		t.Errorf("response = %s, want not-found detail", rec.Body.String())
	}
}

func TestHandleWebhook_SkippedDeleteStillSucceeds(t *testing.T) {
	provider, _ := newTestProvider(t)

	rec := postWebhook(t, provider, `{"type": "user.deleted", "data": {"id": "user_gone"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestNewProviderValidation(t *testing.T) {
	if _, err := NewProvider(Config{}); err != webhook.ErrProviderNotConfigured {
		t.Fatalf("error = %v, want ErrProviderNotConfigured", err)
	}

	provider, err := NewProvider(Config{Config: webhook.Config{Users: memory.New()}})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if provider.Name() != "clerk" {
		t.Fatalf("Name() = %q", provider.Name())
	}
}
