// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/tenantstore/internal/models"
)

// Snapshot returns a deep copy of every collection. load decodes private
// copies, so the result shares no memory with cached values. Every
// collection lock is held while reading, and no multi-collection operation
// is in flight.
func (s *Store) Snapshot(ctx context.Context) (*models.Collections, error) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	for _, name := range Collections {
		defer s.lock(name)()
	}

	live := models.Collections{
		Users:          load[models.Account](ctx, s, CollectionUsers),
		Transactions:   load[models.Transaction](ctx, s, CollectionTransactions),
		Usage:          load[models.UsageEvent](ctx, s, CollectionUsage),
		Campaigns:      load[models.Campaign](ctx, s, CollectionCampaigns),
		Notifications:  load[models.Notification](ctx, s, CollectionNotifications),
		APIKeys:        load[models.APIKey](ctx, s, CollectionAPIKeys),
		FeatureFlags:   load[models.FeatureFlag](ctx, s, CollectionFeatureFlags),
		EmailTemplates: load[models.EmailTemplate](ctx, s, CollectionEmailTemplates),
	}

	return &live, nil
}

// Restore overwrites every collection with the contents of c through the
// normal persist path, so each collection's cache keys are invalidated.
// Collections are written in order and the first failure stops the
// restore.
func (s *Store) Restore(ctx context.Context, c *models.Collections) error {
	if c == nil {
		return fmt.Errorf("restore: nil collections")
	}

	steps := []struct {
		name  string
		write func() error
	}{
		{CollectionUsers, func() error { return replace(ctx, s, CollectionUsers, c.Users) }},
		{CollectionTransactions, func() error { return replace(ctx, s, CollectionTransactions, c.Transactions) }},
		{CollectionUsage, func() error { return replace(ctx, s, CollectionUsage, c.Usage) }},
		{CollectionCampaigns, func() error { return replace(ctx, s, CollectionCampaigns, c.Campaigns) }},
		{CollectionNotifications, func() error { return replace(ctx, s, CollectionNotifications, c.Notifications) }},
		{CollectionAPIKeys, func() error { return replace(ctx, s, CollectionAPIKeys, c.APIKeys) }},
		{CollectionFeatureFlags, func() error { return replace(ctx, s, CollectionFeatureFlags, c.FeatureFlags) }},
		{CollectionEmailTemplates, func() error { return replace(ctx, s, CollectionEmailTemplates, c.EmailTemplates) }},
	}
	for _, step := range steps {
		if err := step.write(); err != nil {
			return fmt.Errorf("restore %s: %w", step.name, err)
		}
	}
	return nil
}
