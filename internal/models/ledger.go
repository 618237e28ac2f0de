// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package models

import "time"

// TransactionKind classifies a ledger event.
type TransactionKind string

const (
	TransactionPurchase     TransactionKind = "purchase"
	TransactionRefund       TransactionKind = "refund"
	TransactionSubscription TransactionKind = "subscription"
)

// TransactionStatus is the payment state of a ledger event.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is a ledger event. Amount is in minor currency units.
type Transaction struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Kind        TransactionKind   `json:"kind"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Credits     int64             `json:"credits,omitempty"`
	Status      TransactionStatus `json:"status"`
	ExternalRef string            `json:"external_ref,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// NewTransaction is the input to CreateTransaction.
type NewTransaction struct {
	AccountID   string            `json:"account_id" validate:"required"`
	Kind        TransactionKind   `json:"kind" validate:"required,oneof=purchase refund subscription"`
	Amount      int64             `json:"amount" validate:"min=0"`
	Currency    string            `json:"currency" validate:"required,len=3"`
	Credits     int64             `json:"credits" validate:"min=0"`
	Status      TransactionStatus `json:"status" validate:"omitempty,oneof=pending completed failed refunded"`
	ExternalRef string            `json:"external_ref" validate:"max=256"`
}

// FeatureKind names the billable feature behind a usage event.
type FeatureKind string

const (
	FeatureImage FeatureKind = "image"
	FeatureChat  FeatureKind = "chat"
	FeatureMusic FeatureKind = "music"
	FeatureSEO   FeatureKind = "seo"
)

// UsageEvent records credits consumed by one billable operation. Creating
// one is the only way an account's balance decreases.
type UsageEvent struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Feature     FeatureKind       `json:"feature"`
	CreditsUsed int64             `json:"credits_used"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewUsageEvent is the input to RecordUsage.
type NewUsageEvent struct {
	AccountID   string            `json:"account_id" validate:"required"`
	Feature     FeatureKind       `json:"feature" validate:"required,max=64"`
	CreditsUsed int64             `json:"credits_used" validate:"min=0"`
	Metadata    map[string]string `json:"metadata"`
}
