// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package auth

import (
	"context"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
)

type contextKey string

// userContextKey carries the authenticated username.
const userContextKey contextKey = "auth_user"

// TokenCookieName is the cookie the dashboard stores its JWT in.
const TokenCookieName = "homestead_token"

// Authenticator guards API routes according to the configured auth mode.
type Authenticator struct {
	mode  string
	jwt   *JWTManager
	basic *BasicAuthManager
}

// NewAuthenticator builds the authenticator for the configured mode. In
// "none" mode both managers stay nil and every request passes.
func NewAuthenticator(cfg *config.SecurityConfig) (*Authenticator, error) {
	a := &Authenticator{mode: cfg.AuthMode}

	switch cfg.AuthMode {
	case config.AuthModeNone:
		logging.Warn().Msg("authentication disabled, anyone on the network can control this host")
	case config.AuthModeBasic:
		basic, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		a.basic = basic
	case config.AuthModeJWT:
		jwtMgr, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		basic, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		a.jwt = jwtMgr
		a.basic = basic
	}
	return a, nil
}

// Mode returns the active auth mode.
func (a *Authenticator) Mode() string {
	return a.mode
}

// JWT returns the token manager, nil outside jwt mode.
func (a *Authenticator) JWT() *JWTManager {
	return a.jwt
}

// Login validates a username/password pair, for the login endpoint.
func (a *Authenticator) Login(username, password string) bool {
	if a.basic == nil {
		return false
	}
	return a.basic.ValidateLogin(username, password)
}

// Middleware enforces the configured auth mode on wrapped routes.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch a.mode {
		case config.AuthModeNone:
			next.ServeHTTP(w, r)
			return
		case config.AuthModeBasic:
			username, err := a.basic.ValidateCredentials(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="homestead"`)
				writeUnauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
			return
		case config.AuthModeJWT:
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing token")
				return
			}
			claims, err := a.jwt.ValidateToken(token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Username)))
			return
		default:
			writeUnauthorized(w, "unknown auth mode")
		}
	})
}

// bearerToken extracts the JWT from the Authorization header, the session
// cookie, or the token query parameter. The query parameter exists for the
// overlay's websocket connection, where OBS Browser Sources cannot set
// headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// WithUser stores the authenticated username on the context.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userContextKey, username)
}

// UserFromContext returns the authenticated username, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(userContextKey).(string)
	return username, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
