// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package cache provides the TTL cache that absorbs bursts of collection
// reads between mutations, and the registry that maps collection names to
// the cache keys and callbacks invalidated on every persist.
//
// The cache knows nothing about collections. It is a key to value store
// with per-entry expiry, regex bulk invalidation and a periodic sweep.
package cache

import "time"

// Cacher is the contract the registry and collection store depend on.
// No method blocks on I/O or returns an operational error; a miss looks
// the same whether the key was never set or has expired.
type Cacher interface {
	// Get returns the value if present and not expired.
	Get(key string) (interface{}, bool)

	// Set stores value with the default TTL.
	Set(key string, value interface{})

	// SetWithTTL stores value expiring ttl from now.
	SetWithTTL(key string, value interface{}, ttl time.Duration)

	// Invalidate removes key unconditionally.
	Invalidate(key string)

	// InvalidatePattern removes every key matching the regular expression
	// and returns how many were removed.
	InvalidatePattern(pattern string) (int, error)

	// Sweep removes every expired entry and returns how many were removed.
	Sweep() int
}
