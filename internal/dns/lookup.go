// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package dns manages the homelab zone records and keeps the public A
// record in sync with the house's real WAN address.
package dns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/homelab-ops/homestead/internal/logging"
)

// ErrAllLookupsFailed is returned when no lookup URL yielded a usable IP.
var ErrAllLookupsFailed = errors.New("all public IP lookups failed")

const lookupBodyLimit = 256

// IPLookup resolves the current public IP by querying a list of plain-text
// lookup services. The first usable answer wins. Each service sits behind
// its own circuit breaker so a flaky one gets skipped instead of retried on
// every cycle.
type IPLookup struct {
	client   *http.Client
	urls     []string
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

// NewIPLookup creates a lookup over the given URLs.
func NewIPLookup(urls []string) *IPLookup {
	l := &IPLookup{
		client:   &http.Client{Timeout: 10 * time.Second},
		urls:     urls,
		breakers: make(map[string]*gobreaker.CircuitBreaker[string], len(urls)),
	}
	for _, url := range urls {
		url := url
		settings := gobreaker.Settings{
			Name:    url,
			Timeout: 5 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if to == gobreaker.StateOpen {
					logging.Warn().Str("url", name).Msg("public IP lookup circuit opened")
				}
			},
		}
		l.breakers[url] = gobreaker.NewCircuitBreaker[string](settings)
	}
	return l
}

// PublicIP returns the current public IPv4 or IPv6 address.
func (l *IPLookup) PublicIP(ctx context.Context) (string, error) {
	var lastErr error
	for _, url := range l.urls {
		ip, err := l.breakers[url].Execute(func() (string, error) {
			return l.fetch(ctx, url)
		})
		if err == nil {
			return ip, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.Debug().Err(err).Str("url", url).Msg("public IP lookup failed")
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %s", ErrAllLookupsFailed, lastErr)
	}
	return "", ErrAllLookupsFailed
}

func (l *IPLookup) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, lookupBodyLimit))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%s returned %q, not an IP address", url, ip)
	}
	return ip, nil
}
