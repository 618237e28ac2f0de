// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package config

import "time"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendS3     = "s3"
)

// Config holds all application configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Badger  BadgerConfig  `koanf:"badger"`
	S3      S3Config      `koanf:"s3"`
	Backup  BackupConfig  `koanf:"backup"`
	Audit   AuditConfig   `koanf:"audit"`
	Logging LoggingConfig `koanf:"logging"`
}

// StoreConfig selects the blob backend and tunes the collection cache.
type StoreConfig struct {
	Backend          string        `koanf:"backend"`
	DataDir          string        `koanf:"data_dir"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	SweepInterval    time.Duration `koanf:"sweep_interval"`
	FallbackEnabled  bool          `koanf:"fallback_enabled"`
	FallbackCapacity int           `koanf:"fallback_capacity"`
}

// BadgerConfig configures the embedded BadgerDB backend.
type BadgerConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// S3Config configures the S3-compatible object storage backend.
type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"` // MinIO, R2, Tigris
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	Prefix          string `koanf:"prefix"`
	UsePathStyle    bool   `koanf:"use_path_style"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Compression       string        `koanf:"compression"`
	EncryptionEnabled bool          `koanf:"encryption_enabled"`
	EncryptionSecret  string        `koanf:"encryption_secret"`
	ScheduleEnabled   bool          `koanf:"schedule_enabled"`
	ScheduleInterval  time.Duration `koanf:"schedule_interval"`
	RetentionMaxCount int           `koanf:"retention_max_count"`
	RetentionMaxAge   time.Duration `koanf:"retention_max_age"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled        bool `koanf:"enabled"`
	BufferSize     int  `koanf:"buffer_size"`
	MemoryCapacity int  `koanf:"memory_capacity"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json, console
	Caller bool   `koanf:"caller"`
}
