// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

/*
Package config provides layered configuration for tenantstore.

# Configuration Sources

Sources are applied in order, later ones winning:
  - Built-in defaults (defaultConfig)
  - An optional YAML file: the --config flag, CONFIG_PATH, tenantstore.yaml,
    or /etc/tenantstore/config.yaml
  - Environment variables listed in envTransformFunc

# Environment Variables

Store:
  - STORE_BACKEND: memory, file, badger or s3 (default: file)
  - STORE_DATA_DIR: root directory of the file backend (default: ./data)
  - STORE_CACHE_TTL: collection cache lifetime (default: 5s)
  - STORE_SWEEP_INTERVAL: expired cache entry sweep period (default: 60s)
  - STORE_FALLBACK_ENABLED: buffer failed writes in memory (default: true)
  - STORE_FALLBACK_CAPACITY: buffered writes kept (default: 256)

Badger:
  - BADGER_PATH, BADGER_IN_MEMORY, BADGER_SYNC_WRITES

S3:
  - S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PREFIX, S3_USE_PATH_STYLE
  - S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY

Backup:
  - BACKUP_ENABLED, BACKUP_COMPRESSION
  - BACKUP_ENCRYPTION_ENABLED, BACKUP_ENCRYPTION_SECRET
  - BACKUP_SCHEDULE_ENABLED, BACKUP_SCHEDULE_INTERVAL
  - BACKUP_RETENTION_MAX_COUNT, BACKUP_RETENTION_MAX_AGE

Audit:
  - AUDIT_ENABLED, AUDIT_BUFFER_SIZE, AUDIT_MEMORY_CAPACITY

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load("")
	if err != nil {
	    log.Fatal(err)
	}
*/
package config
