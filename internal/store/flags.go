// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/models"
)

// Evaluate reports whether flag is on for identity.
//
// A disabled flag is off for everyone. An allow-listed identity is always
// on. Otherwise the identity falls into a stable bucket in [0,100) derived
// from the flag key and the identity, and is on when the bucket is below
// Rollout. Rollout 0 is off and 100 is on for every identity.
func Evaluate(flag *models.FeatureFlag, identity string) bool {
	if flag == nil || !flag.Enabled {
		return false
	}
	if slices.Contains(flag.AllowList, identity) {
		return true
	}
	switch {
	case flag.Rollout <= 0:
		return false
	case flag.Rollout >= 100:
		return true
	}
	return Bucket(flag.Key, identity) < uint64(flag.Rollout)
}

// Bucket returns the rollout bucket of identity for the flag key.
func Bucket(flagKey, identity string) uint64 {
	return xxhash.Sum64String(flagKey+":"+identity) % 100
}

// UpsertFeatureFlag creates the flag for in.Key or replaces its settings.
func (s *Store) UpsertFeatureFlag(ctx context.Context, in models.FeatureFlagInput) (*models.FeatureFlag, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var out *models.FeatureFlag
	err := update(ctx, s, CollectionFeatureFlags, func(flags []models.FeatureFlag) ([]models.FeatureFlag, error) {
		now := s.now()
		if i := index(flags, byFlagKey(in.Key)); i >= 0 {
			f := &flags[i]
			f.Description = in.Description
			f.Enabled = in.Enabled
			f.Rollout = in.Rollout
			f.AllowList = slices.Clone(in.AllowList)
			f.UpdatedAt = now
			cp := *f
			out = &cp
			return flags, nil
		}

		f := models.FeatureFlag{
			ID:          uuid.NewString(),
			Key:         in.Key,
			Description: in.Description,
			Enabled:     in.Enabled,
			Rollout:     in.Rollout,
			AllowList:   slices.Clone(in.AllowList),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		out = &f
		return append(flags, f), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetFeatureFlag returns the flag with key, or nil.
func (s *Store) GetFeatureFlag(ctx context.Context, key string) (*models.FeatureFlag, error) {
	return find(load[models.FeatureFlag](ctx, s, CollectionFeatureFlags), byFlagKey(key)), nil
}

// ListFeatureFlags returns every flag in insertion order.
func (s *Store) ListFeatureFlags(ctx context.Context) ([]models.FeatureFlag, error) {
	return load[models.FeatureFlag](ctx, s, CollectionFeatureFlags), nil
}

// DeleteFeatureFlag removes the flag with key.
func (s *Store) DeleteFeatureFlag(ctx context.Context, key string) (bool, error) {
	return deleteWhere(ctx, s, CollectionFeatureFlags, byFlagKey(key))
}

// IsFeatureEnabled evaluates the stored flag for identity. A missing flag
// is off.
func (s *Store) IsFeatureEnabled(ctx context.Context, key, identity string) bool {
	flag, _ := s.GetFeatureFlag(ctx, key)
	return Evaluate(flag, identity)
}

func byFlagKey(key string) func(*models.FeatureFlag) bool {
	return func(f *models.FeatureFlag) bool { return f.Key == key }
}
