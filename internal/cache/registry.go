// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package cache

import (
	"strings"
	"sync"

	"github.com/tomtom215/tenantstore/internal/logging"
)

// PatternPrefix marks a registered key as a regular expression.
const PatternPrefix = "re:"

// Registry maps a collection name to the cache keys derived from it and to
// callbacks run whenever that collection is persisted.
//
//	reg := cache.NewRegistry(c)
//	reg.Register("users", "collection:users", "re:^users:")
//	reg.Invalidate("users")
type Registry struct {
	cache Cacher

	mu        sync.RWMutex
	keys      map[string][]string
	callbacks map[string][]func(collection string)
}

// NewRegistry creates a registry invalidating entries in c.
func NewRegistry(c Cacher) *Registry {
	return &Registry{
		cache:     c,
		keys:      make(map[string][]string),
		callbacks: make(map[string][]func(string)),
	}
}

// Register associates keys with collection. Keys prefixed with "re:" are
// treated as patterns.
func (r *Registry) Register(collection string, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.keys[collection]
	for _, k := range keys {
		if !contains(existing, k) {
			existing = append(existing, k)
		}
	}
	r.keys[collection] = existing
}

// OnInvalidate adds a callback run after the keys of collection are
// removed.
func (r *Registry) OnInvalidate(collection string, fn func(collection string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[collection] = append(r.callbacks[collection], fn)
}

// Keys returns a copy of the keys registered for collection.
func (r *Registry) Keys(collection string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.keys[collection]...)
}

// Collections returns every collection with registered keys.
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.keys))
	for name := range r.keys {
		out = append(out, name)
	}
	return out
}

// Invalidate removes every key registered for collection, then runs its
// callbacks.
func (r *Registry) Invalidate(collection string) {
	r.mu.RLock()
	keys := append([]string(nil), r.keys[collection]...)
	callbacks := append(([]func(string))(nil), r.callbacks[collection]...)
	r.mu.RUnlock()

	for _, k := range keys {
		if pattern, ok := strings.CutPrefix(k, PatternPrefix); ok {
			if _, err := r.cache.InvalidatePattern(pattern); err != nil {
				logging.Error().Err(err).Str("collection", collection).Msg("Invalid registered cache pattern")
			}
			continue
		}
		r.cache.Invalidate(k)
	}

	for _, fn := range callbacks {
		fn(collection)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
