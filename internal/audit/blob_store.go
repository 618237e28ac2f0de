// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/codec"
)

// KeyPrefix is the blob prefix under which daily audit files live.
const KeyPrefix = "audit/"

// BlobStore implements Store over a blob.Store, appending each event to
// one JSON sequence per UTC day at "audit/<yyyy-mm-dd>.json".
type BlobStore struct {
	blobs blob.Store
	mu    sync.Mutex
}

// NewBlobStore creates a durable audit store.
func NewBlobStore(blobs blob.Store) *BlobStore {
	return &BlobStore{blobs: blobs}
}

// DayKey returns the blob key holding events for the event's day.
func DayKey(event *Event) string {
	return KeyPrefix + event.Timestamp.UTC().Format("2006-01-02") + ".json"
}

// Save appends event to its day file. Unlike collection reads, a failed
// read here is an error: rewriting the day from an empty sequence would
// drop the events already stored.
func (s *BlobStore) Save(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := DayKey(event)
	events, err := s.readDay(ctx, key)
	if err != nil {
		return err
	}

	data, err := codec.Encode(append(events, *event))
	if err != nil {
		return fmt.Errorf("failed to encode audit events: %w", err)
	}
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Query scans day files newest first.
func (s *BlobStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	keys, err := s.blobs.List(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	results := make([]Event, 0)
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		events, err := s.readDay(ctx, key)
		if err != nil {
			return nil, err
		}
		for i := len(events) - 1; i >= 0; i-- {
			if !filter.Matches(&events[i]) {
				continue
			}
			results = append(results, events[i])
			if filter.Limit > 0 && len(results) >= filter.Limit {
				return results, nil
			}
		}
	}
	return results, nil
}

func (s *BlobStore) readDay(ctx context.Context, key string) ([]Event, error) {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return make([]Event, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return codec.Decode[Event]("audit", data), nil
}
