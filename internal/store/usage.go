// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/models"
)

// RecordUsage appends a usage event and debits the owning account.
//
// The event is persisted first and is kept even when the debit cannot be
// applied. If the account exists its balance becomes
// max(0, credits - creditsUsed) and its usage counter is incremented by
// one. A missing account is not an error and no account is created.
//
// The usage and users locks are taken one after the other, never together.
func (s *Store) RecordUsage(ctx context.Context, in models.NewUsageEvent) (*models.UsageEvent, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	event := models.UsageEvent{
		ID:          uuid.NewString(),
		AccountID:   in.AccountID,
		Feature:     in.Feature,
		CreditsUsed: in.CreditsUsed,
		Metadata:    maps.Clone(in.Metadata),
		CreatedAt:   s.now(),
	}

	err := update(ctx, s, CollectionUsage, func(events []models.UsageEvent) ([]models.UsageEvent, error) {
		return append(events, event), nil
	})
	if err != nil {
		return nil, err
	}

	err = update(ctx, s, CollectionUsers, func(accounts []models.Account) ([]models.Account, error) {
		i := index(accounts, byAccountID(in.AccountID))
		if i < 0 {
			logging.Ctx(ctx).Warn().
				Str("account_id", in.AccountID).
				Str("usage_id", event.ID).
				Msg("Usage recorded for unknown account, debit skipped")
			return nil, errNoChange
		}

		acct := &accounts[i]
		acct.Credits = debit(acct.Credits, in.CreditsUsed)
		acct.UsageCount++
		acct.UpdatedAt = s.now()
		return accounts, nil
	})
	if err != nil {
		return nil, fmt.Errorf("usage %s recorded but debit failed: %w", event.ID, err)
	}
	return &event, nil
}

// debit returns balance - used, clamped at zero.
func debit(balance, used int64) int64 {
	if used >= balance {
		return 0
	}
	return balance - used
}

// GetUsageEvent returns the usage event with id, or nil.
func (s *Store) GetUsageEvent(ctx context.Context, id string) (*models.UsageEvent, error) {
	return find(load[models.UsageEvent](ctx, s, CollectionUsage), func(e *models.UsageEvent) bool {
		return e.ID == id
	}), nil
}

// ListUsageByAccount returns an account's usage events in insertion order.
func (s *Store) ListUsageByAccount(ctx context.Context, accountID string) ([]models.UsageEvent, error) {
	return filter(load[models.UsageEvent](ctx, s, CollectionUsage), func(e *models.UsageEvent) bool {
		return e.AccountID == accountID
	}), nil
}
