// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthManager validates HTTP Basic credentials against the configured
// admin account.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager creates a Basic Auth manager. The password may be
// given either as a bcrypt hash (recommended) or as plaintext, which is
// hashed once at startup so requests never compare plaintext.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	var hash []byte
	if strings.HasPrefix(password, "$2a$") || strings.HasPrefix(password, "$2b$") || strings.HasPrefix(password, "$2y$") {
		hash = []byte(password)
	} else {
		if len(password) < 8 {
			return nil, fmt.Errorf("password must be at least 8 characters")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(password), 12)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hash = h
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials checks an Authorization header value and returns the
// username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", fmt.Errorf("invalid credentials format")
	}

	if !m.validate(username, password) {
		return "", fmt.Errorf("invalid username or password")
	}
	return username, nil
}

// ValidateLogin checks a username/password pair directly, for the login
// endpoint.
func (m *BasicAuthManager) ValidateLogin(username, password string) bool {
	return m.validate(username, password)
}

// validate compares both fields in constant time. bcrypt's comparison is
// timing-safe; the username check uses subtle for the same property.
func (m *BasicAuthManager) validate(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}
