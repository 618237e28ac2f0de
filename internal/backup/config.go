// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"fmt"
	"time"
)

// Compression algorithms.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Config holds all backup-related configuration.
type Config struct {
	// Enable backup functionality
	Enabled bool

	// Compression is "none" or "zstd".
	Compression string

	// Encryption settings (optional)
	Encryption EncryptionConfig

	// Schedule configuration
	Schedule ScheduleConfig

	// Retention policy for automatic backups
	Retention RetentionPolicy
}

// EncryptionConfig defines encryption settings for backup payloads.
type EncryptionConfig struct {
	Enabled bool

	// Secret is the input keying material. Per-backup AES-256 keys are
	// derived from it with HKDF-SHA256.
	Secret string
}

// ScheduleConfig defines when automatic backups run.
type ScheduleConfig struct {
	Enabled  bool
	Interval time.Duration
}

// RetentionPolicy bounds automatic backups. Manual and pre-restore
// backups are never pruned.
type RetentionPolicy struct {
	// Maximum number of automatic backups to keep (0 = unlimited)
	MaxCount int

	// Maximum age of automatic backups (0 = unlimited). The newest
	// automatic backup is always kept.
	MaxAge time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Compression: CompressionZstd,
		Schedule: ScheduleConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
		},
		Retention: RetentionPolicy{
			MaxCount: 14,
		},
	}
}

// MinEncryptionSecretLength is the shortest accepted secret.
const MinEncryptionSecretLength = 32

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Compression {
	case "", CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("backup.compression must be one of: none, zstd, got: %s", c.Compression)
	}

	if c.Encryption.Enabled && len(c.Encryption.Secret) < MinEncryptionSecretLength {
		return fmt.Errorf("backup.encryption_secret must be at least %d characters", MinEncryptionSecretLength)
	}

	if c.Schedule.Enabled && c.Schedule.Interval < time.Minute {
		return fmt.Errorf("backup.schedule_interval must be at least 1m, got: %s", c.Schedule.Interval)
	}

	if c.Retention.MaxCount < 0 {
		return fmt.Errorf("backup.retention_max_count must not be negative, got: %d", c.Retention.MaxCount)
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("backup.retention_max_age must not be negative, got: %s", c.Retention.MaxAge)
	}

	return nil
}

func (c *Config) compress() bool {
	return c.Compression == CompressionZstd
}
