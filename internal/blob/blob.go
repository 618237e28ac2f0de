// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package blob provides addressable byte storage for collections, backup
// payloads and the backup index.
//
// Keys are slash-separated paths such as "collections/users.json" or
// "backups/payloads/<id>.json.zst". Every backend stores a key as one
// opaque value and writes it whole.
//
// Backends:
//   - FileStore: one file per key under a root directory (default)
//   - BadgerStore: embedded BadgerDB key-value store
//   - S3Store: S3-compatible object storage
//   - MemoryStore: process-local map, used in tests
//
// Wrappers:
//   - BreakerStore: circuit breaker around a remote backend
//   - FallbackStore: durable-or-degrade ring buffer around any backend
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is addressable whole-value byte storage.
type Store interface {
	// Get returns the value at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value at key.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// ValidateKey rejects keys that could escape a backend's namespace.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("blob key is empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
