// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package backup snapshots and restores every collection of the store.
//
// A backup is two blobs: the payload, holding a deep copy of all
// collections, and an entry in the lightweight index at
// "backups/index.json". Listing reads only the index. Restoring replays
// each collection through the store's normal persist path so that cache
// invalidation fires for every collection.
//
// Payloads are JSON, optionally compressed with zstd and then sealed with
// AES-256-GCM under a per-backup key derived from the configured secret.
//
//	created ──restore──▶ created (RestoreCount+1) ──delete──▶ gone
package backup

import (
	"errors"
	"time"
)

var (
	// ErrBackupNotFound is returned when the index entry or the payload of
	// a backup is missing.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrChecksumMismatch is returned when a payload does not hash to the
	// checksum recorded at creation. The store is left untouched.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")

	// ErrDisabled is returned by mutations when backups are disabled.
	ErrDisabled = errors.New("backups are disabled")

	// ErrEncryptionKeyMissing is returned when an encrypted payload is read
	// without a configured secret.
	ErrEncryptionKeyMissing = errors.New("backup is encrypted but no encryption secret is configured")
)

// Kind records what initiated a backup.
type Kind string

const (
	// KindManual is an operator-requested backup. Never pruned.
	KindManual Kind = "manual"

	// KindAutomatic is created by the scheduler and subject to retention.
	KindAutomatic Kind = "automatic"

	// KindPreRestore is taken just before a restore overwrites the store.
	KindPreRestore Kind = "pre_restore"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindManual, KindAutomatic, KindPreRestore:
		return true
	}
	return false
}

// Backup is the metadata kept in the index for one backup. It never
// carries the payload.
type Backup struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Kind      Kind      `json:"kind"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// SizeBytes is the serialized payload size before compression.
	SizeBytes int64 `json:"size_bytes"`

	// StoredBytes is the size of the payload blob as written.
	StoredBytes int64 `json:"stored_bytes"`

	// Checksum is the hex SHA-256 of the stored payload blob.
	Checksum string `json:"checksum"`

	PayloadKey   string         `json:"payload_key"`
	Compressed   bool           `json:"compressed"`
	Encrypted    bool           `json:"encrypted"`
	RecordCount  int            `json:"record_count"`
	RecordCounts map[string]int `json:"record_counts,omitempty"`
	Duration     time.Duration  `json:"duration_ms"`
	AppVersion   string         `json:"app_version"`

	RestoreCount   int        `json:"restore_count"`
	LastRestoredAt *time.Time `json:"last_restored_at,omitempty"`
}

// CreateOptions describes a backup to create.
type CreateOptions struct {
	Label     string
	Kind      Kind
	CreatedBy string
}

// ListOptions filters and pages a listing. Results are newest first.
type ListOptions struct {
	Kind   *Kind
	Limit  int
	Offset int
}

// RestoreOptions configures a restore.
type RestoreOptions struct {
	// CreatePreRestoreBackup snapshots the current state first.
	CreatePreRestoreBackup bool

	// RestoredBy names the actor for auditing.
	RestoredBy string
}

// RestoreResult describes a completed restore.
type RestoreResult struct {
	BackupID           string        `json:"backup_id"`
	PreRestoreBackupID string        `json:"pre_restore_backup_id,omitempty"`
	RecordsRestored    int           `json:"records_restored"`
	Duration           time.Duration `json:"duration_ms"`
}

// ReconcileResult lists what Reconcile repaired.
type ReconcileResult struct {
	// OrphanPayloads were payload blobs with no index entry; they were
	// deleted.
	OrphanPayloads []string `json:"orphan_payloads"`

	// MissingPayloads are backup IDs whose payload was gone; their index
	// entries were dropped.
	MissingPayloads []string `json:"missing_payloads"`
}

// VerifyResult reports the integrity of one backup without restoring it.
type VerifyResult struct {
	Backup           *Backup  `json:"backup"`
	Valid            bool     `json:"valid"`
	ChecksumValid    bool     `json:"checksum_valid"`
	ExpectedChecksum string   `json:"expected_checksum"`
	ActualChecksum   string   `json:"actual_checksum"`
	PayloadReadable  bool     `json:"payload_readable"`
	RecordCount      int      `json:"record_count"`
	Errors           []string `json:"errors,omitempty"`
}

// Stats summarizes the index.
type Stats struct {
	TotalCount        int          `json:"total_count"`
	CountByKind       map[Kind]int `json:"count_by_kind"`
	TotalSizeBytes    int64        `json:"total_size_bytes"`
	TotalStoredBytes  int64        `json:"total_stored_bytes"`
	OldestBackup      *time.Time   `json:"oldest_backup,omitempty"`
	NewestBackup      *time.Time   `json:"newest_backup,omitempty"`
	LastBackup        *Backup      `json:"last_backup,omitempty"`
	TotalRestoreCount int          `json:"total_restore_count"`
}
