package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nimbuschat/nimbus-go/internal/middleware"
	"github.com/nimbuschat/nimbus-go/internal/repository"
	"github.com/nimbuschat/nimbus-go/internal/service"
)

const testSecret = "test-secret"

// newAuthRouter wires the auth routes the way cmd/api does, backed by a
// temp-dir file store.
func newAuthRouter(t *testing.T) *chi.Mux {
	t.Helper()

	store, err := repository.NewFileUserStore(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("NewFileUserStore() unexpected error: %v", err)
	}

	authService := service.NewAuthService(store, testSecret, time.Hour, 30*24*time.Hour)
	authHandler := NewAuthHandler(authService, true)

	r := chi.NewRouter()
	r.Post("/api/auth/signup", authHandler.HandleSignup)
	r.Post("/api/auth/signin", authHandler.HandleSignin)
	r.Post("/api/auth/forgot-password", authHandler.HandleForgotPassword)
	r.Post("/api/auth/reset-password", authHandler.HandleResetPassword)
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(testSecret))
		r.Get("/api/auth/verify", authHandler.HandleVerify)
	})
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSignupEndpoint(t *testing.T) {
	r := newAuthRouter(t)

	rec := postJSON(t, r, "/api/auth/signup", map[string]string{
		"name":     "Ava",
		"email":    "ava@x.com",
		"password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	body := decodeResponse(t, rec)
	if body["token"] == "" || body["token"] == nil {
		t.Error("signup response missing token")
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("signup response missing user object: %v", body)
	}
	if user["email"] != "ava@x.com" {
		t.Errorf("user.email = %v, want ava@x.com", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("signup response leaks password hash")
	}
}

func TestSignupEndpointValidation(t *testing.T) {
	r := newAuthRouter(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@x.com", "password": "secret1"}},
		{"missing email", map[string]string{"name": "Ava", "password": "secret1"}},
		{"short password", map[string]string{"name": "Ava", "email": "a@x.com", "password": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, r, "/api/auth/signup", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSignupEndpointBodyTooLarge(t *testing.T) {
	r := newAuthRouter(t)

	rec := postJSON(t, r, "/api/auth/signup", map[string]string{
		"name":     strings.Repeat("a", 2<<20),
		"email":    "ava@x.com",
		"password": "secret1",
	})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestSignupEndpointDuplicateEmail(t *testing.T) {
	r := newAuthRouter(t)

	body := map[string]string{"name": "Ava", "email": "ava@x.com", "password": "secret1"}
	if rec := postJSON(t, r, "/api/auth/signup", body); rec.Code != http.StatusCreated {
		t.Fatalf("first signup status = %d", rec.Code)
	}
	if rec := postJSON(t, r, "/api/auth/signup", body); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSigninEndpoint(t *testing.T) {
	r := newAuthRouter(t)

	postJSON(t, r, "/api/auth/signup", map[string]string{"name": "Ava", "email": "ava@x.com", "password": "secret1"})

	rec := postJSON(t, r, "/api/auth/signin", map[string]any{
		"email":      "ava@x.com",
		"password":   "secret1",
		"rememberMe": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, r, "/api/auth/signin", map[string]string{"email": "ava@x.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = postJSON(t, r, "/api/auth/signin", map[string]string{"email": "ava@x.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	r := newAuthRouter(t)

	rec := postJSON(t, r, "/api/auth/signup", map[string]string{"name": "Ava", "email": "ava@x.com", "password": "secret1"})
	token := decodeResponse(t, rec)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got := httptest.NewRecorder()
	r.ServeHTTP(got, req)

	if got.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", got.Code, got.Body.String())
	}
	body := decodeResponse(t, got)
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "ava@x.com" {
		t.Errorf("verify body = %v, want user object", body)
	}
}

func TestVerifyEndpointRejectsBadTokens(t *testing.T) {
	r := newAuthRouter(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

// Forgot-password must answer identically for known and unknown emails,
// apart from the dev-only code.
func TestForgotPasswordEndpointUniformResponse(t *testing.T) {
	r := newAuthRouter(t)

	postJSON(t, r, "/api/auth/signup", map[string]string{"name": "Ava", "email": "ava@x.com", "password": "secret1"})

	known := postJSON(t, r, "/api/auth/forgot-password", map[string]string{"email": "ava@x.com"})
	unknown := postJSON(t, r, "/api/auth/forgot-password", map[string]string{"email": "nobody@x.com"})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses = %d/%d, want 200/200", known.Code, unknown.Code)
	}

	knownBody := decodeResponse(t, known)
	unknownBody := decodeResponse(t, unknown)
	if knownBody["message"] != unknownBody["message"] {
		t.Error("forgot-password message differs between known and unknown email")
	}

	if _, ok := knownBody["devCode"]; !ok {
		t.Error("dev mode: known email should include devCode")
	}
	if _, ok := unknownBody["devCode"]; ok {
		t.Error("unknown email must never include devCode")
	}
}

func TestForgotPasswordEndpointMissingEmail(t *testing.T) {
	r := newAuthRouter(t)

	rec := postJSON(t, r, "/api/auth/forgot-password", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestResetPasswordEndpointFlow(t *testing.T) {
	r := newAuthRouter(t)

	postJSON(t, r, "/api/auth/signup", map[string]string{"name": "Ava", "email": "ava@x.com", "password": "secret1"})

	rec := postJSON(t, r, "/api/auth/forgot-password", map[string]string{"email": "ava@x.com"})
	code := decodeResponse(t, rec)["devCode"].(string)

	reset := map[string]string{"email": "ava@x.com", "code": code, "newPassword": "newsecret"}
	if rec := postJSON(t, r, "/api/auth/reset-password", reset); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d: %s", rec.Code, rec.Body.String())
	}

	// Same code again: single use.
	if rec := postJSON(t, r, "/api/auth/reset-password", reset); rec.Code != http.StatusBadRequest {
		t.Errorf("reused code status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// New password works.
	if rec := postJSON(t, r, "/api/auth/signin", map[string]string{"email": "ava@x.com", "password": "newsecret"}); rec.Code != http.StatusOK {
		t.Errorf("signin with new password status = %d", rec.Code)
	}
}

func TestResetPasswordEndpointBadCode(t *testing.T) {
	r := newAuthRouter(t)

	postJSON(t, r, "/api/auth/signup", map[string]string{"name": "Ava", "email": "ava@x.com", "password": "secret1"})

	rec := postJSON(t, r, "/api/auth/reset-password", map[string]string{
		"email":       "ava@x.com",
		"code":        "000000",
		"newPassword": "newsecret",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
