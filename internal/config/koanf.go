// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"tenantstore.yaml",
	"tenantstore.yml",
	"/etc/tenantstore/config.yaml",
	"/etc/tenantstore/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:          BackendFile,
			DataDir:          "./data",
			CacheTTL:         5 * time.Second,
			SweepInterval:    60 * time.Second,
			FallbackEnabled:  true,
			FallbackCapacity: 256,
		},
		Badger: BadgerConfig{
			Path:       "./data/badger",
			InMemory:   false,
			SyncWrites: true,
		},
		S3: S3Config{
			Region:       "us-east-1",
			UsePathStyle: false,
		},
		Backup: BackupConfig{
			Enabled:           true,
			Compression:       "zstd",
			EncryptionEnabled: false,
			ScheduleEnabled:   false,
			ScheduleInterval:  24 * time.Hour,
			RetentionMaxCount: 14,
			RetentionMaxAge:   0, // unlimited
		},
		Audit: AuditConfig{
			Enabled:        true,
			BufferSize:     1000,
			MemoryCapacity: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: path if non-empty, otherwise the first file found by
//     findConfigFile (optional)
//  3. Environment Variables: Override any setting
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional unless named explicitly)
	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// STORE_BACKEND -> store.backend
	// BACKUP_ENCRYPTION_SECRET -> backup.encryption_secret
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Store mappings
	"store_backend":           "store.backend",
	"store_data_dir":          "store.data_dir",
	"store_cache_ttl":         "store.cache_ttl",
	"store_sweep_interval":    "store.sweep_interval",
	"store_fallback_enabled":  "store.fallback_enabled",
	"store_fallback_capacity": "store.fallback_capacity",

	// Badger mappings
	"badger_path":        "badger.path",
	"badger_in_memory":   "badger.in_memory",
	"badger_sync_writes": "badger.sync_writes",

	// S3 mappings
	"s3_bucket":            "s3.bucket",
	"s3_region":            "s3.region",
	"s3_endpoint":          "s3.endpoint",
	"s3_access_key_id":     "s3.access_key_id",
	"s3_secret_access_key": "s3.secret_access_key",
	"s3_prefix":            "s3.prefix",
	"s3_use_path_style":    "s3.use_path_style",

	// Backup mappings
	"backup_enabled":             "backup.enabled",
	"backup_compression":         "backup.compression",
	"backup_encryption_enabled":  "backup.encryption_enabled",
	"backup_encryption_secret":   "backup.encryption_secret",
	"backup_schedule_enabled":    "backup.schedule_enabled",
	"backup_schedule_interval":   "backup.schedule_interval",
	"backup_retention_max_count": "backup.retention_max_count",
	"backup_retention_max_age":   "backup.retention_max_age",

	// Audit mappings
	"audit_enabled":         "audit.enabled",
	"audit_buffer_size":     "audit.buffer_size",
	"audit_memory_capacity": "audit.memory_capacity",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - STORE_BACKEND -> store.backend
//   - S3_BUCKET -> s3.bucket
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
