// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package blob

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
)

// DefaultFallbackCapacity is the number of degraded keys kept in memory.
const DefaultFallbackCapacity = 256

// degraded is a write (or delete) the primary has not accepted yet.
type degraded struct {
	data    []byte
	deleted bool
}

// FallbackStore attempts the primary store and, when it fails, keeps the
// write in a bounded in-memory ring instead of failing the caller. Reads
// prefer degraded entries so callers observe their own writes. When the
// ring is full the oldest degraded key is dropped.
type FallbackStore struct {
	primary  Store
	capacity int

	mu      sync.Mutex
	entries map[string]degraded
	order   []string // oldest first
}

// NewFallbackStore wraps primary. capacity <= 0 uses DefaultFallbackCapacity.
func NewFallbackStore(primary Store, capacity int) *FallbackStore {
	if capacity <= 0 {
		capacity = DefaultFallbackCapacity
	}
	return &FallbackStore{
		primary:  primary,
		capacity: capacity,
		entries:  make(map[string]degraded),
	}
}

func (f *FallbackStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	e, ok := f.entries[key]
	f.mu.Unlock()
	if ok {
		if e.deleted {
			return nil, ErrNotFound
		}
		return append([]byte(nil), e.data...), nil
	}
	return f.primary.Get(ctx, key)
}

func (f *FallbackStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := f.primary.Put(ctx, key, data); err != nil {
		f.degrade(key, degraded{data: append([]byte(nil), data...)}, err)
		return nil
	}
	f.forget(key)
	return nil
}

func (f *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := f.primary.Delete(ctx, key); err != nil {
		f.degrade(key, degraded{deleted: true}, err)
		return nil
	}
	f.forget(key)
	return nil
}

// List merges primary keys with degraded writes. A primary failure is
// returned because callers use List to decide what to delete.
func (f *FallbackStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := f.primary.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	f.mu.Lock()
	for k, e := range f.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if e.deleted {
			delete(set, k)
		} else {
			set[k] = struct{}{}
		}
	}
	f.mu.Unlock()

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Flush replays degraded entries to the primary, oldest first. Entries
// that still fail stay queued; the first error is returned.
func (f *FallbackStore) Flush(ctx context.Context) (int, error) {
	f.mu.Lock()
	pending := append([]string(nil), f.order...)
	f.mu.Unlock()

	var (
		flushed  int
		firstErr error
	)
	for _, key := range pending {
		if err := ctx.Err(); err != nil {
			return flushed, err
		}

		f.mu.Lock()
		e, ok := f.entries[key]
		f.mu.Unlock()
		if !ok {
			continue
		}

		var err error
		if e.deleted {
			err = f.primary.Delete(ctx, key)
		} else {
			err = f.primary.Put(ctx, key, e.data)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		f.mu.Lock()
		// A newer degraded write may have replaced the one just flushed.
		if cur, ok := f.entries[key]; ok && sameEntry(cur, e) {
			f.removeLocked(key)
		}
		f.mu.Unlock()
		flushed++
	}

	metrics.FallbackPending.Set(float64(f.Degraded()))
	if flushed > 0 {
		logging.Info().Int("flushed", flushed).Int("pending", f.Degraded()).Msg("Flushed degraded writes to primary store")
	}
	return flushed, firstErr
}

// Degraded returns the number of entries not yet accepted by the primary.
func (f *FallbackStore) Degraded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *FallbackStore) Close() error {
	if n := f.Degraded(); n > 0 {
		logging.Warn().Int("pending", n).Msg("Closing fallback store with unflushed writes")
	}
	return f.primary.Close()
}

func (f *FallbackStore) degrade(key string, e degraded, cause error) {
	f.mu.Lock()
	if _, exists := f.entries[key]; exists {
		f.removeLocked(key)
	}
	for len(f.order) >= f.capacity {
		oldest := f.order[0]
		f.removeLocked(oldest)
		metrics.FallbackDropped.Inc()
		logging.Error().Str("key", oldest).Msg("Fallback ring full, dropped oldest degraded write")
	}
	f.entries[key] = e
	f.order = append(f.order, key)
	pending := len(f.entries)
	f.mu.Unlock()

	reason := "primary_error"
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		reason = "context"
	}
	metrics.RecordFallbackWrite(reason, pending)
	logging.Warn().
		Err(cause).
		Str("key", key).
		Bool("delete", e.deleted).
		Int("pending", pending).
		Msg("Primary store unavailable, keeping write in memory")
}

func (f *FallbackStore) forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[key]; ok {
		f.removeLocked(key)
	}
}

// removeLocked must be called with f.mu held.
func (f *FallbackStore) removeLocked(key string) {
	delete(f.entries, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func sameEntry(a, b degraded) bool {
	if a.deleted != b.deleted || len(a.data) != len(b.data) {
		return false
	}
	return string(a.data) == string(b.data)
}
