// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/models"
)

// CreateAccount creates an account, or returns the existing one when an
// account with the same ExternalID is already stored.
func (s *Store) CreateAccount(ctx context.Context, in models.NewAccount) (*models.Account, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var out *models.Account
	err := update(ctx, s, CollectionUsers, func(accounts []models.Account) ([]models.Account, error) {
		if existing := find(accounts, byExternalID(in.ExternalID)); existing != nil {
			out = existing
			return nil, errNoChange
		}

		role := in.Role
		if role == "" {
			role = models.RoleBase
		}
		now := s.now()
		acct := models.Account{
			ID:         uuid.NewString(),
			ExternalID: in.ExternalID,
			Email:      in.Email,
			Name:       in.Name,
			Role:       role,
			Status:     models.AccountActive,
			Credits:    in.Credits,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		out = &acct
		return append(accounts, acct), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetAccount returns the account with id, or nil.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return find(load[models.Account](ctx, s, CollectionUsers), byAccountID(id)), nil
}

// GetAccountByExternalID returns the account with the given natural key,
// or nil.
func (s *Store) GetAccountByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return find(load[models.Account](ctx, s, CollectionUsers), byExternalID(externalID)), nil
}

// ListAccounts returns every account in insertion order.
func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return load[models.Account](ctx, s, CollectionUsers), nil
}

// UpdateAccount applies the non-nil fields of u and re-stamps UpdatedAt.
func (s *Store) UpdateAccount(ctx context.Context, id string, u models.AccountUpdate) (*models.Account, error) {
	if err := validate(u); err != nil {
		return nil, err
	}
	return s.mutateAccount(ctx, id, func(a *models.Account) {
		if u.Email != nil {
			a.Email = *u.Email
		}
		if u.Name != nil {
			a.Name = *u.Name
		}
		if u.Role != nil {
			a.Role = *u.Role
		}
		if u.Status != nil {
			a.Status = *u.Status
		}
		if u.Credits != nil {
			a.Credits = *u.Credits
		}
		if u.LastLoginAt != nil {
			t := *u.LastLoginAt
			a.LastLoginAt = &t
		}
	})
}

// RecordLogin stamps LastLoginAt and increments LoginCount.
func (s *Store) RecordLogin(ctx context.Context, id string) (*models.Account, error) {
	now := s.now()
	return s.mutateAccount(ctx, id, func(a *models.Account) {
		a.LastLoginAt = &now
		a.LoginCount++
	})
}

// AddCredits increases an account's balance.
func (s *Store) AddCredits(ctx context.Context, id string, credits int64) (*models.Account, error) {
	if credits < 0 {
		return nil, ErrInvalidAmount
	}
	acct, err := s.mutateAccount(ctx, id, func(a *models.Account) {
		a.Credits += credits
	})
	if err == nil {
		logging.Ctx(ctx).Info().
			Str("account_id", id).
			Int64("credits_added", credits).
			Int64("balance", acct.Credits).
			Msg("Credits added")
	}
	return acct, err
}

// mutateAccount applies fn to the account with id under the users lock.
func (s *Store) mutateAccount(ctx context.Context, id string, fn func(*models.Account)) (*models.Account, error) {
	var out *models.Account
	err := update(ctx, s, CollectionUsers, func(accounts []models.Account) ([]models.Account, error) {
		i := index(accounts, byAccountID(id))
		if i < 0 {
			return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		fn(&accounts[i])
		accounts[i].UpdatedAt = s.now()
		acct := accounts[i]
		out = &acct
		return accounts, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func byAccountID(id string) func(*models.Account) bool {
	return func(a *models.Account) bool { return a.ID == id }
}

func byExternalID(ext string) func(*models.Account) bool {
	return func(a *models.Account) bool { return a.ExternalID == ext }
}
