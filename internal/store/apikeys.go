// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/models"
)

const (
	// APIKeyPrefix marks plaintext keys issued by this store.
	APIKeyPrefix = "tsk_"

	apiKeyBytes       = 32
	apiKeyPrefixChars = 12
)

// HashAPIKey returns the hex SHA-256 digest stored for a plaintext key.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func generateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateAPIKey issues a new key. The plaintext is returned once and only
// its hash is stored.
func (s *Store) CreateAPIKey(ctx context.Context, in models.NewAPIKey) (*models.APIKey, string, error) {
	if err := validate(in); err != nil {
		return nil, "", err
	}

	plaintext, err := generateAPIKey()
	if err != nil {
		return nil, "", err
	}

	key := models.APIKey{
		ID:        uuid.NewString(),
		AccountID: in.AccountID,
		Name:      in.Name,
		KeyHash:   HashAPIKey(plaintext),
		KeyPrefix: plaintext[:apiKeyPrefixChars],
		Scopes:    slices.Clone(in.Scopes),
		ExpiresAt: in.ExpiresAt,
		CreatedAt: s.now(),
	}

	err = update(ctx, s, CollectionAPIKeys, func(keys []models.APIKey) ([]models.APIKey, error) {
		return append(keys, key), nil
	})
	if err != nil {
		return nil, "", err
	}
	return &key, plaintext, nil
}

// GetAPIKeyByHash returns the key whose stored hash is hash, or nil.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	return find(load[models.APIKey](ctx, s, CollectionAPIKeys), func(k *models.APIKey) bool {
		return k.KeyHash == hash
	}), nil
}

// ListAPIKeys returns an account's keys, revoked ones included.
func (s *Store) ListAPIKeys(ctx context.Context, accountID string) ([]models.APIKey, error) {
	return filter(load[models.APIKey](ctx, s, CollectionAPIKeys), func(k *models.APIKey) bool {
		return k.AccountID == accountID
	}), nil
}

// RevokeAPIKey stamps RevokedAt. Revoking twice keeps the first stamp.
func (s *Store) RevokeAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	return s.mutateAPIKey(ctx, id, func(k *models.APIKey) bool {
		if k.RevokedAt != nil {
			return false
		}
		now := s.now()
		k.RevokedAt = &now
		return true
	})
}

// TouchAPIKey records a use of the key.
func (s *Store) TouchAPIKey(ctx context.Context, id string) (*models.APIKey, error) {
	return s.mutateAPIKey(ctx, id, func(k *models.APIKey) bool {
		now := s.now()
		k.LastUsedAt = &now
		return true
	})
}

// DeleteAPIKey removes the key with id.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) (bool, error) {
	return deleteWhere(ctx, s, CollectionAPIKeys, byAPIKeyID(id))
}

// mutateAPIKey applies fn to the key with id. fn reports whether it
// changed anything; nothing is written when it did not.
func (s *Store) mutateAPIKey(ctx context.Context, id string, fn func(*models.APIKey) bool) (*models.APIKey, error) {
	var out *models.APIKey
	err := update(ctx, s, CollectionAPIKeys, func(keys []models.APIKey) ([]models.APIKey, error) {
		i := index(keys, byAPIKeyID(id))
		if i < 0 {
			return nil, fmt.Errorf("api key %s: %w", id, ErrNotFound)
		}
		changed := fn(&keys[i])
		k := keys[i]
		out = &k
		if !changed {
			return nil, errNoChange
		}
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func byAPIKeyID(id string) func(*models.APIKey) bool {
	return func(k *models.APIKey) bool { return k.ID == id }
}
