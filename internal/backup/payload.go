// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/hkdf"
)

// Blob layout.
const (
	IndexKey      = "backups/index.json"
	PayloadPrefix = "backups/payloads/"
)

const (
	hkdfInfo = "tenantstore backup payload v1"

	// maxDecodedPayload bounds zstd output when reading a payload.
	maxDecodedPayload = 1 << 30
)

// PayloadKey returns the blob key of a payload. The suffixes record the
// pipeline stages applied, outermost last.
func PayloadKey(id string, compressed, encrypted bool) string {
	key := PayloadPrefix + id + ".json"
	if compressed {
		key += ".zst"
	}
	if encrypted {
		key += ".enc"
	}
	return key
}

// checksum returns the hex SHA-256 of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// seal applies compression and then encryption to a serialized payload.
func seal(raw []byte, id string, compress bool, secret string) ([]byte, error) {
	out := raw
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		out = enc.EncodeAll(out, make([]byte, 0, len(out)/4))
		enc.Close()
	}
	if secret != "" {
		sealed, err := encrypt(out, id, secret)
		if err != nil {
			return nil, err
		}
		out = sealed
	}
	return out, nil
}

// unseal reverses seal using the stages recorded on the backup.
func unseal(stored []byte, b *Backup, secret string) ([]byte, error) {
	out := stored
	if b.Encrypted {
		if secret == "" {
			return nil, ErrEncryptionKeyMissing
		}
		opened, err := decrypt(out, b.ID, secret)
		if err != nil {
			return nil, err
		}
		out = opened
	}
	if b.Compressed {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedPayload))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(out, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload: %w", err)
		}
		out = raw
	}
	return out, nil
}

// deriveKey derives the AES-256 key for one backup. The backup ID is the
// HKDF salt, so every payload is sealed under a distinct key.
func deriveKey(secret, id string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte(id), []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive backup key: %w", err)
	}
	return key, nil
}

func newGCM(secret, id string) (cipher.AEAD, error) {
	key, err := deriveKey(secret, id)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// encrypt returns nonce||ciphertext. The backup ID is bound as additional
// data so a payload cannot be swapped under another backup's entry.
func encrypt(plaintext []byte, id, secret string) ([]byte, error) {
	gcm, err := newGCM(secret, id)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, []byte(id)), nil
}

func decrypt(sealed []byte, id, secret string) ([]byte, error) {
	gcm, err := newGCM(secret, id)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("encrypted payload is truncated")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(id))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return plaintext, nil
}
