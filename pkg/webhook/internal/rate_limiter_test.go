package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request over the limit should be blocked")
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.allow("1.1.1.1") {
		t.Fatal("first ip should be allowed")
	}
	if !rl.allow("2.2.2.2") {
		t.Error("second ip has its own bucket")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestGetClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	req.RemoteAddr = "127.0.0.1:1234"

	if ip := GetClientIP(req); ip != "10.0.0.1" {
		t.Errorf("expected first forwarded ip, got %q", ip)
	}
}

func TestGetClientIP_RemoteAddrFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "127.0.0.1:1234"

	if ip := GetClientIP(req); ip != "127.0.0.1:1234" {
		t.Errorf("expected remote addr, got %q", ip)
	}
}
