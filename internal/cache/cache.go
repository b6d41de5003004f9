// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package cache provides a small TTL cache used to shield systemctl, virsh,
// and docker from dashboard polling. Status endpoints get hit every few
// seconds per open browser tab; the underlying commands take tens of
// milliseconds each and do not need to run that often.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with a fixed TTL per instance.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	stop chan struct{}
}

// New creates a cache with the given TTL and starts a background sweep that
// drops expired entries once per minute.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the cached value for key if present and fresh.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.data, true
}

// Set stores a value under key with the cache's TTL.
func (c *Cache) Set(key string, data interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops one key. Called after state-changing operations so the
// next status read reflects the change immediately.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close stops the background sweep.
func (c *Cache) Close() {
	close(c.stop)
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
