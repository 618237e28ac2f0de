// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package codec converts a named collection to and from its persisted blob.
//
// A collection is always an ordered JSON array of flat records, indented so
// the files stay human-readable and diff-able. Decoding never fails: an
// absent or corrupt blob yields an empty sequence and the parse error is
// logged, so one damaged collection cannot take down the others.
package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
)

// Key returns the blob key for a collection.
func Key(name string) string {
	return "collections/" + name + ".json"
}

// Decode parses data into a sequence. It returns an empty, non-nil slice
// when data is empty or malformed.
func Decode[T any](name string, data []byte) []T {
	if len(data) == 0 {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		metrics.RecordDecodeFailure(name)
		logging.Error().
			Err(err).
			Str("collection", name).
			Int("bytes", len(data)).
			Msg("Corrupt collection blob, substituting empty collection")
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// Encode serializes a sequence. A nil slice encodes as [].
func Encode[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection: %w", err)
	}
	return data, nil
}

// Read loads a collection from s. Missing blobs and read failures both
// produce an empty sequence; read failures are logged.
func Read[T any](ctx context.Context, s blob.Store, name string) []T {
	data, err := s.Get(ctx, Key(name))
	if errors.Is(err, blob.ErrNotFound) {
		return []T{}
	}
	if err != nil {
		logging.Ctx(ctx).Error().
			Err(err).
			Str("collection", name).
			Msg("Failed to read collection, substituting empty collection")
		return []T{}
	}
	return Decode[T](name, data)
}

// Write replaces the collection blob with items.
func Write[T any](ctx context.Context, s blob.Store, name string, items []T) error {
	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("collection %s: %w", name, err)
	}
	if err := s.Put(ctx, Key(name), data); err != nil {
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	return nil
}
