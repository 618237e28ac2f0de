// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/models"
)

// CreateTransaction appends a ledger event. Status defaults to pending.
func (s *Store) CreateTransaction(ctx context.Context, in models.NewTransaction) (*models.Transaction, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.TransactionPending
	}
	now := s.now()
	tx := models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   in.AccountID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Currency:    strings.ToUpper(in.Currency),
		Credits:     in.Credits,
		Status:      status,
		ExternalRef: in.ExternalRef,
		CreatedAt:   now,
	}
	if settled(status) {
		tx.CompletedAt = &now
	}

	err := update(ctx, s, CollectionTransactions, func(txs []models.Transaction) ([]models.Transaction, error) {
		return append(txs, tx), nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransaction returns the ledger event with id, or nil.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return find(load[models.Transaction](ctx, s, CollectionTransactions), func(t *models.Transaction) bool {
		return t.ID == id
	}), nil
}

// GetTransactionByExternalRef returns the ledger event carrying a payment
// provider reference, or nil.
func (s *Store) GetTransactionByExternalRef(ctx context.Context, ref string) (*models.Transaction, error) {
	if ref == "" {
		return nil, nil
	}
	return find(load[models.Transaction](ctx, s, CollectionTransactions), func(t *models.Transaction) bool {
		return t.ExternalRef == ref
	}), nil
}

// ListTransactionsByAccount returns an account's ledger in insertion order.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return filter(load[models.Transaction](ctx, s, CollectionTransactions), func(t *models.Transaction) bool {
		return t.AccountID == accountID
	}), nil
}

// UpdateTransactionStatus moves a ledger event to status. CompletedAt is
// stamped the first time it reaches completed or refunded. An empty
// externalRef keeps the existing reference.
func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, status models.TransactionStatus, externalRef string) (*models.Transaction, error) {
	switch status {
	case models.TransactionPending, models.TransactionCompleted, models.TransactionFailed, models.TransactionRefunded:
	default:
		return nil, fmt.Errorf("unknown transaction status %q", status)
	}

	var out *models.Transaction
	err := update(ctx, s, CollectionTransactions, func(txs []models.Transaction) ([]models.Transaction, error) {
		i := index(txs, func(t *models.Transaction) bool { return t.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		tx := &txs[i]
		tx.Status = status
		if externalRef != "" {
			tx.ExternalRef = externalRef
		}
		if settled(status) && tx.CompletedAt == nil {
			now := s.now()
			tx.CompletedAt = &now
		}
		cp := *tx
		out = &cp
		return txs, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func settled(status models.TransactionStatus) bool {
	return status == models.TransactionCompleted || status == models.TransactionRefunded
}
