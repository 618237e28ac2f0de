// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package cache

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/tomtom215/tenantstore/internal/metrics"
)

const (
	// DefaultTTL is short on purpose: entries only need to survive a burst
	// of reads between two mutations.
	DefaultTTL = 5 * time.Second

	// DefaultSweepInterval is the housekeeping period for expired entries.
	DefaultSweepInterval = 60 * time.Second
)

// Entry represents a cached item with expiration.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
	LastSweep time.Time
}

// Cache is a thread-safe in-memory TTL cache.
//
// Expired entries are evicted lazily by Get and in bulk by Sweep. The
// background sweep is opt-in through StartSweeper or the Sweeper service
// and is stopped with Stop.
type Cache struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
	stats   Stats

	sweepMu sync.Mutex
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a cache. name labels its metrics; ttl <= 0 uses DefaultTTL.
//
//	c := cache.New("collections", 5*time.Second)
//	c.StartSweeper(time.Minute)
//	defer c.Stop()
func New(name string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// TTL returns the default time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.ExpiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
			metrics.RecordCacheEviction(c.name, "expired", 1)
			metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
		}
		c.mu.Unlock()
		c.recordMiss()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	metrics.RecordCacheHit(c.name)
	return entry.Data, true
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
	metrics.RecordCacheMiss(c.name)
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with an absolute expiry of now + ttl.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	}
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		metrics.RecordCacheEviction(c.name, "invalidated", 1)
		metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
	}
}

// InvalidatePattern removes every key matching pattern. An invalid
// pattern removes nothing.
func (c *Cache) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid cache key pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if re.MatchString(key) {
			delete(c.entries, key)
			removed++
		}
	}
	metrics.RecordCacheEviction(c.name, "invalidated", removed)
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
	return removed, nil
}

// Sweep removes every expired entry.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Evictions += int64(removed)
	c.stats.LastSweep = now
	metrics.RecordCacheEviction(c.name, "swept", removed)
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
	return removed
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	metrics.CacheSize.WithLabelValues(c.name).Set(0)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache statistics.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Keys = len(c.entries)
	return s
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// StartSweeper runs Sweep every interval until Stop is called. Calling it
// while a sweeper is already running is a no-op.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	if c.stopCh != nil {
		return
	}
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})

	go c.sweepLoop(interval, c.stopCh, c.done)
}

func (c *Cache) sweepLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Stop halts the background sweeper and waits for it to exit. It is safe
// to call more than once and when no sweeper was started.
func (c *Cache) Stop() {
	c.sweepMu.Lock()
	stop, done := c.stopCh, c.done
	c.stopCh, c.done = nil, nil
	c.sweepMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
