// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package store implements the collection store: typed operations over a
// fixed set of named collections, each persisted as one whole blob and
// fronted by the TTL cache.
//
// Every mutation is Load, mutate in memory, Persist, then invalidate the
// cache keys registered for the collection. Mutations of one collection are
// serialized by a per-collection mutex, so concurrent read-modify-write
// cycles cannot overwrite each other. Reads never return errors: a missing
// record is (nil, nil) and a corrupt collection reads as empty.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/cache"
	"github.com/tomtom215/tenantstore/internal/codec"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
	"github.com/tomtom215/tenantstore/internal/validation"
)

// Collection names. Each maps to the blob "collections/<name>.json".
const (
	CollectionUsers          = "users"
	CollectionTransactions   = "transactions"
	CollectionUsage          = "usage"
	CollectionCampaigns      = "campaigns"
	CollectionNotifications  = "notifications"
	CollectionAPIKeys        = "api_keys"
	CollectionFeatureFlags   = "feature_flags"
	CollectionEmailTemplates = "email_templates"
)

// Collections lists every collection in snapshot and restore order.
var Collections = []string{
	CollectionUsers,
	CollectionTransactions,
	CollectionUsage,
	CollectionCampaigns,
	CollectionNotifications,
	CollectionAPIKeys,
	CollectionFeatureFlags,
	CollectionEmailTemplates,
}

var (
	// ErrNotFound is returned by mutations addressed to a missing record.
	// Lookups return (nil, nil) instead.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidAmount is returned for negative credit adjustments.
	ErrInvalidAmount = errors.New("credit amount must not be negative")

	// errNoChange aborts an update without persisting.
	errNoChange = errors.New("no change")
)

// cachedCollection is the encoded form of a collection held in the cache.
type cachedCollection []byte

// CacheKey returns the cache key holding a loaded collection.
func CacheKey(collection string) string {
	return "collection:" + collection
}

// Store is the collection store.
type Store struct {
	blobs    blob.Store
	cache    *cache.Cache
	registry *cache.Registry
	ttl      time.Duration
	now      func() time.Time

	locks map[string]*sync.Mutex
	gens  map[string]*atomic.Uint64

	// snapMu is held shared by operations that span collections and
	// exclusively by Snapshot, so a snapshot never sees half of one.
	snapMu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithCacheTTL overrides the cache TTL used for loaded collections.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store over blobs, caching loaded collections in c.
func New(blobs blob.Store, c *cache.Cache, opts ...Option) *Store {
	s := &Store{
		blobs:    blobs,
		cache:    c,
		registry: cache.NewRegistry(c),
		ttl:      c.TTL(),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    make(map[string]*sync.Mutex, len(Collections)),
		gens:     make(map[string]*atomic.Uint64, len(Collections)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range Collections {
		s.locks[name] = &sync.Mutex{}
		s.gens[name] = &atomic.Uint64{}
		// Derived views such as "users:ext:<id>" share the collection's fate.
		s.registry.Register(name, CacheKey(name), cache.PatternPrefix+"^"+name+":")
	}
	return s
}

// Registry exposes the cache key registry so collaborators can register
// derived keys and invalidation callbacks.
func (s *Store) Registry() *cache.Registry {
	return s.registry
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blob.Store {
	return s.blobs
}

func (s *Store) lock(name string) func() {
	mu, ok := s.locks[name]
	if !ok {
		panic(fmt.Sprintf("store: unknown collection %q", name))
	}
	mu.Lock()
	return mu.Unlock
}

// load returns a private copy of the collection. The cache holds the
// encoded collection, so every caller decodes records that share no memory
// with the cached value or with each other.
func load[T any](ctx context.Context, s *Store, name string) []T {
	key := CacheKey(name)
	if v, ok := s.cache.Get(key); ok {
		if data, ok := v.(cachedCollection); ok {
			return codec.Decode[T](name, data)
		}
	}

	gen := s.gens[name]
	before := gen.Load()
	items := codec.Read[T](ctx, s.blobs, name)
	data, err := codec.Encode(items)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("collection", name).Msg("Collection not cached")
		return items
	}
	s.cache.SetWithTTL(key, cachedCollection(data), s.ttl)
	// A persist that raced with the read may have been cached over;
	// drop it so the next load goes back to the blob.
	if gen.Load() != before {
		s.cache.Invalidate(key)
	}
	return items
}

// persist writes the whole collection and invalidates its cache keys. The
// invalidation runs even when the write fails, since a partially degraded
// backend may have accepted it.
func persist[T any](ctx context.Context, s *Store, name string, items []T) error {
	start := time.Now()
	err := codec.Write(ctx, s.blobs, name, items)
	metrics.RecordPersist(name, time.Since(start), err)

	s.gens[name].Add(1)
	s.registry.Invalidate(name)

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("collection", name).Msg("Failed to persist collection")
		return fmt.Errorf("failed to persist %s: %w", name, err)
	}
	return nil
}

// update runs one serialized read-modify-write cycle on a collection.
// Returning errNoChange from fn skips the write.
func update[T any](ctx context.Context, s *Store, name string, fn func([]T) ([]T, error)) error {
	unlock := s.lock(name)
	defer unlock()

	items, err := fn(load[T](ctx, s, name))
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	return persist(ctx, s, name, items)
}

// replace overwrites a collection under its lock.
func replace[T any](ctx context.Context, s *Store, name string, items []T) error {
	unlock := s.lock(name)
	defer unlock()
	return persist(ctx, s, name, items)
}

// find returns a pointer to a copy of the first matching record.
func find[T any](items []T, match func(*T) bool) *T {
	for i := range items {
		if match(&items[i]) {
			out := items[i]
			return &out
		}
	}
	return nil
}

// index returns the position of the first matching record or -1.
func index[T any](items []T, match func(*T) bool) int {
	for i := range items {
		if match(&items[i]) {
			return i
		}
	}
	return -1
}

func filter[T any](items []T, match func(*T) bool) []T {
	out := make([]T, 0)
	for i := range items {
		if match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

func validate(input interface{}) error {
	return validation.Struct(input)
}
