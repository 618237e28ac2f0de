// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package config

import (
	"fmt"
	"strings"
	"time"
)

// minEncryptionSecretLength matches the backup package's requirement.
const minEncryptionSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateBadger(); err != nil {
		return err
	}

	if err := c.validateS3(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	if err := c.validateAudit(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendBadger, BackendS3:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: memory, file, badger, s3, got: %q", c.Store.Backend)
	}

	if c.Store.Backend == BackendFile && c.Store.DataDir == "" {
		return fmt.Errorf("STORE_DATA_DIR is required when STORE_BACKEND=file")
	}
	if c.Store.CacheTTL <= 0 {
		return fmt.Errorf("STORE_CACHE_TTL must be positive, got: %s", c.Store.CacheTTL)
	}
	if c.Store.SweepInterval < time.Second {
		return fmt.Errorf("STORE_SWEEP_INTERVAL must be at least 1s, got: %s", c.Store.SweepInterval)
	}
	if c.Store.FallbackEnabled && c.Store.FallbackCapacity < 1 {
		return fmt.Errorf("STORE_FALLBACK_CAPACITY must be at least 1, got: %d", c.Store.FallbackCapacity)
	}
	return nil
}

// validateBadger validates Badger configuration (only if selected)
func (c *Config) validateBadger() error {
	if c.Store.Backend != BackendBadger || c.Badger.InMemory {
		return nil
	}
	if c.Badger.Path == "" {
		return fmt.Errorf("BADGER_PATH is required when STORE_BACKEND=badger")
	}
	return nil
}

// validateS3 validates S3 configuration (only if selected)
func (c *Config) validateS3() error {
	if c.Store.Backend != BackendS3 {
		return nil
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when STORE_BACKEND=s3")
	}
	if c.S3.Region == "" {
		return fmt.Errorf("S3_REGION is required when STORE_BACKEND=s3")
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}
	if c.S3.Endpoint != "" && !strings.HasPrefix(c.S3.Endpoint, "http://") && !strings.HasPrefix(c.S3.Endpoint, "https://") {
		return fmt.Errorf("S3_ENDPOINT must start with http:// or https://, got: %q", c.S3.Endpoint)
	}
	return nil
}

// validateBackup validates backup configuration (only if enabled)
func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}

	switch c.Backup.Compression {
	case "none", "zstd":
	default:
		return fmt.Errorf("BACKUP_COMPRESSION must be one of: none, zstd, got: %q", c.Backup.Compression)
	}

	if c.Backup.EncryptionEnabled && len(c.Backup.EncryptionSecret) < minEncryptionSecretLength {
		return fmt.Errorf("BACKUP_ENCRYPTION_SECRET must be at least %d characters when BACKUP_ENCRYPTION_ENABLED=true", minEncryptionSecretLength)
	}

	if c.Backup.ScheduleEnabled && c.Backup.ScheduleInterval < time.Minute {
		return fmt.Errorf("BACKUP_SCHEDULE_INTERVAL must be at least 1m, got: %s", c.Backup.ScheduleInterval)
	}

	if c.Backup.RetentionMaxCount < 0 {
		return fmt.Errorf("BACKUP_RETENTION_MAX_COUNT must not be negative, got: %d", c.Backup.RetentionMaxCount)
	}
	if c.Backup.RetentionMaxAge < 0 {
		return fmt.Errorf("BACKUP_RETENTION_MAX_AGE must not be negative, got: %s", c.Backup.RetentionMaxAge)
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1, got: %d", c.Audit.BufferSize)
	}
	if c.Audit.MemoryCapacity < 1 {
		return fmt.Errorf("AUDIT_MEMORY_CAPACITY must be at least 1, got: %d", c.Audit.MemoryCapacity)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, got: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %q", c.Logging.Format)
	}
	return nil
}
