// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package models

import "time"

// APIKey is a stored API credential. Only the hash is persisted; the
// plaintext key is returned once at creation.
type APIKey struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"key_hash"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the key is neither revoked nor expired at now.
func (k *APIKey) Active(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}

// NewAPIKey is the input to CreateAPIKey.
type NewAPIKey struct {
	AccountID string     `json:"account_id" validate:"required"`
	Name      string     `json:"name" validate:"required,max=128"`
	Scopes    []string   `json:"scopes" validate:"omitempty,dive,required,max=64"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// FeatureFlag gates a feature by explicit allow-list and percentage
// rollout. Key is the natural key.
type FeatureFlag struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Rollout     int       `json:"rollout"`
	AllowList   []string  `json:"allow_list,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FeatureFlagInput is the input to UpsertFeatureFlag.
type FeatureFlagInput struct {
	Key         string   `json:"key" validate:"required,slug,max=128"`
	Description string   `json:"description" validate:"max=1024"`
	Enabled     bool     `json:"enabled"`
	Rollout     int      `json:"rollout" validate:"min=0,max=100"`
	AllowList   []string `json:"allow_list" validate:"omitempty,dive,required"`
}
