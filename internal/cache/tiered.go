// Package cache implements the in-memory tiered store backing the refresh
// pipeline. Each key holds two slots written together: a short-lived primary
// and a longer-lived backup that serves reads after the primary expires.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value      T
	primaryExp time.Time
	backupExp  time.Time
}

// Tiered is a two-slot TTL cache. Both slots for a key are always written in
// the same critical section, so a reader can never observe a primary write
// without its backup counterpart.
type Tiered[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	now     func() time.Time
}

// NewTiered creates an empty tiered cache.
func NewTiered[T any]() *Tiered[T] {
	return &Tiered[T]{
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// SetPair stores value under key in both slots. backupTTL must be >= primaryTTL
// for the fallback to be meaningful; SetPair enforces it by raising backupTTL
// to primaryTTL when violated.
func (c *Tiered[T]) SetPair(key string, value T, primaryTTL, backupTTL time.Duration) {
	if backupTTL < primaryTTL {
		backupTTL = primaryTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[T]{
		value:      value,
		primaryExp: now.Add(primaryTTL),
		backupExp:  now.Add(backupTTL),
	}
}

// Get returns the freshest live value for key. The primary slot is consulted
// first; once it has expired the backup serves until its own expiration, after
// which the result is absent.
func (c *Tiered[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}

	now := c.now()
	if now.Before(e.primaryExp) || now.Before(e.backupExp) {
		return e.value, true
	}

	var zero T
	return zero, false
}

// GetFresh returns the value only if the primary slot is still live. Used by
// read paths that must decide whether a refresh is due.
func (c *Tiered[T]) GetFresh(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.primaryExp) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// GetBackup returns the backup slot value if it is still live, bypassing the
// primary. The pipeline reads this after an upstream failure.
func (c *Tiered[T]) GetBackup(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.backupExp) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes both slots for key.
func (c *Tiered[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry whose backup slot has expired, reclaiming memory
// for keys that can no longer serve any read.
func (c *Tiered[T]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.backupExp) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
