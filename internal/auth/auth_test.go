// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homelab-ops/homestead/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func jwtConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		AuthMode:       config.AuthModeJWT,
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
		AdminUsername:  "admin",
		AdminPassword:  "correct-horse",
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager(jwtConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("admin", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "admin" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	m, _ := NewJWTManager(jwtConfig())
	token, _ := m.GenerateToken("admin", "admin")

	tampered := token[:len(token)-4] + "AAAA"
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Error("expected tampered token to fail validation")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := jwtConfig()
	cfg.SessionTimeout = -time.Minute
	m, _ := NewJWTManager(cfg)

	token, _ := m.GenerateToken("admin", "admin")
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected expired token to fail validation")
	}
}

func TestBasicAuthManagerPlaintext(t *testing.T) {
	m, err := NewBasicAuthManager("admin", "correct-horse")
	if err != nil {
		t.Fatalf("NewBasicAuthManager: %v", err)
	}

	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:correct-horse"))
	username, err := m.ValidateCredentials(header)
	if err != nil {
		t.Fatalf("ValidateCredentials: %v", err)
	}
	if username != "admin" {
		t.Errorf("username = %q", username)
	}

	bad := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:wrong"))
	if _, err := m.ValidateCredentials(bad); err == nil {
		t.Error("expected wrong password to fail")
	}
}

func TestBasicAuthManagerAcceptsBcryptHash(t *testing.T) {
	// bcrypt hash of "correct-horse".
	base, err := NewBasicAuthManager("admin", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}

	m, err := NewBasicAuthManager("admin", string(base.passwordHash))
	if err != nil {
		t.Fatalf("NewBasicAuthManager with hash: %v", err)
	}
	if !m.ValidateLogin("admin", "correct-horse") {
		t.Error("hash-configured manager rejected the right password")
	}
	if m.ValidateLogin("admin", "wrong") {
		t.Error("hash-configured manager accepted a wrong password")
	}
}

func TestBasicAuthManagerRejectsShortPassword(t *testing.T) {
	if _, err := NewBasicAuthManager("admin", "short"); err == nil {
		t.Error("expected error for short plaintext password")
	}
}

func protectedHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			t.Error("handler reached without user in context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareJWTModes(t *testing.T) {
	a, err := NewAuthenticator(jwtConfig())
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	token, err := a.JWT().GenerateToken("admin", "admin")
	if err != nil {
		t.Fatal(err)
	}

	handler := a.Middleware(protectedHandler(t))

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    int
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}, http.StatusOK},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
		}, http.StatusOK},
		{"query param", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", token)
			r.URL.RawQuery = q.Encode()
		}, http.StatusOK},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-token")
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMiddlewareNoneMode(t *testing.T) {
	a, err := NewAuthenticator(&config.SecurityConfig{AuthMode: config.AuthModeNone})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareBasicMode(t *testing.T) {
	a, err := NewAuthenticator(&config.SecurityConfig{
		AuthMode:      config.AuthModeBasic,
		AdminUsername: "admin",
		AdminPassword: "correct-horse",
	})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	handler := a.Middleware(protectedHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "correct-horse")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
}
