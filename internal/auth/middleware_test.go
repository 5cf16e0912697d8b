package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticAPIKeyValidatorParsing(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:ops:admin|reader")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	identity, ok := validator.Validate(context.Background(), "k1")
	if !ok {
		t.Fatal("expected key to be valid")
	}
	if identity.Name != "ops" {
		t.Fatalf("Name = %q", identity.Name)
	}
	if !identity.HasRole(RoleAdmin) {
		t.Fatal("expected admin role")
	}
	if !identity.HasRole(RoleReader) {
		t.Fatal("expected reader role")
	}
}

func TestStaticAPIKeyValidatorRejectsBadSpec(t *testing.T) {
	_, err := NewStaticAPIKeyValidator("invalid")
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMiddlewareRequiresKey(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:dashboard:reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(slog.New(slog.NewJSONHandler(io.Discard, nil)), validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:dashboard:reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(nil, validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		if identity.Name != "dashboard" {
			t.Fatalf("Name = %q", identity.Name)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:dashboard:reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(nil, validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareChatRouteGetsFlatErrorEnvelope(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:dashboard:reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(nil, validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run without a key")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "missing API key" {
		t.Fatalf("error = %v", body["error"])
	}
	if _, ok := body["error_code"]; ok {
		t.Fatal("chat envelope must not carry error_code")
	}
}

func TestMiddlewareOperatorRouteGetsStructuredEnvelope(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:dashboard:reader")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	mw := Middleware(nil, validator)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/retention/run", nil)
	req.Header.Set("X-API-Key", "wrong")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error_code"] != "UNAUTHORIZED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if body["retryable"] != false {
		t.Fatalf("retryable = %v", body["retryable"])
	}
}
