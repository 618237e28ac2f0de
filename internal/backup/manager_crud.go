// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
)

// Create snapshots every collection into a new backup.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*Backup, error) {
	if !m.cfg.Enabled {
		return nil, ErrDisabled
	}
	if opts.Kind == "" {
		opts.Kind = KindManual
	}
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("unknown backup kind %q", opts.Kind)
	}

	backup, err := m.create(ctx, opts)
	metrics.RecordBackupOperation("create", err)

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("kind", string(opts.Kind)).Msg("Backup failed")
		m.record(ctx, audit.EventTypeBackupCreated, opts.CreatedBy, "", err, "Backup failed", nil)
		return nil, err
	}

	metrics.BackupSizeBytes.Set(float64(backup.StoredBytes))
	logging.Ctx(ctx).Info().
		Str("backup_id", backup.ID).
		Str("kind", string(backup.Kind)).
		Int("record_count", backup.RecordCount).
		Int64("size_bytes", backup.SizeBytes).
		Int64("stored_bytes", backup.StoredBytes).
		Dur("duration", backup.Duration).
		Msg("Backup created")
	m.record(ctx, audit.EventTypeBackupCreated, opts.CreatedBy, backup.ID, nil, "Backup created: "+backup.Label, map[string]interface{}{
		"kind":         backup.Kind,
		"record_count": backup.RecordCount,
		"size_bytes":   backup.SizeBytes,
	})

	if m.onBackupComplete != nil {
		m.onBackupComplete(backup)
	}
	return backup, nil
}

func (m *Manager) create(ctx context.Context, opts CreateOptions) (*Backup, error) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	startTime := time.Now()

	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot collections: %w", err)
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	backup := m.initializeBackupRecord(opts)
	backup.SizeBytes = int64(len(raw))
	backup.RecordCount = snap.RecordCount()
	backup.RecordCounts = recordCounts(snap)

	secret := ""
	if backup.Encrypted {
		secret = m.cfg.Encryption.Secret
	}
	stored, err := seal(raw, backup.ID, backup.Compressed, secret)
	if err != nil {
		return nil, err
	}
	backup.StoredBytes = int64(len(stored))
	backup.Checksum = checksum(stored)

	// Payload first: an index entry must never point at nothing.
	if err := m.blobs.Put(ctx, backup.PayloadKey, stored); err != nil {
		return nil, fmt.Errorf("failed to write backup payload: %w", err)
	}

	entries, err := m.loadIndexLocked(ctx)
	if err == nil {
		backup.Duration = time.Since(startTime)
		err = m.saveIndexLocked(ctx, append(entries, *backup))
	}
	if err != nil {
		if derr := m.blobs.Delete(ctx, backup.PayloadKey); derr != nil {
			logging.Ctx(ctx).Warn().Err(derr).Str("payload_key", backup.PayloadKey).
				Msg("Failed to remove payload of unindexed backup")
		}
		return nil, err
	}
	return backup, nil
}

// initializeBackupRecord creates a new backup record with initial values.
func (m *Manager) initializeBackupRecord(opts CreateOptions) *Backup {
	now := m.now()
	label := opts.Label
	if label == "" {
		label = fmt.Sprintf("%s backup %s", opts.Kind, now.Format("2006-01-02 15:04:05"))
	}

	id := uuid.NewString()
	compressed := m.cfg.compress()
	encrypted := m.cfg.Encryption.Enabled
	return &Backup{
		ID:         id,
		Label:      label,
		Kind:       opts.Kind,
		CreatedBy:  opts.CreatedBy,
		CreatedAt:  now,
		PayloadKey: PayloadKey(id, compressed, encrypted),
		Compressed: compressed,
		Encrypted:  encrypted,
		AppVersion: AppVersion,
	}
}

// List returns index entries, newest first. It never reads a payload.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]Backup, error) {
	m.metadataMu.RLock()
	entries, err := m.loadIndexLocked(ctx)
	m.metadataMu.RUnlock()
	if err != nil {
		return nil, err
	}

	filtered := make([]Backup, 0, len(entries))
	for i := range entries {
		if opts.Kind == nil || entries[i].Kind == *opts.Kind {
			filtered = append(filtered, entries[i])
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return applyPagination(filtered, opts), nil
}

// applyPagination applies offset and limit to the filtered backups.
func applyPagination(filtered []Backup, opts ListOptions) []Backup {
	if opts.Offset >= len(filtered) {
		return []Backup{}
	}
	if opts.Offset > 0 {
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered
}

// Get returns the metadata of a backup, or nil when it is not indexed.
func (m *Manager) Get(ctx context.Context, id string) (*Backup, error) {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	entries, err := m.loadIndexLocked(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(entries, id); i >= 0 {
		b := entries[i]
		return &b, nil
	}
	return nil, nil
}

// Delete removes a backup's index entry and then its payload. If the
// payload cannot be removed the backup is still gone from the index and
// the payload is left for Reconcile.
func (m *Manager) Delete(ctx context.Context, id, deletedBy string) error {
	err := m.delete(ctx, id)
	metrics.RecordBackupOperation("delete", err)
	m.record(ctx, audit.EventTypeBackupDeleted, deletedBy, id, err, "Backup deleted", nil)
	if err == nil {
		logging.Ctx(ctx).Info().Str("backup_id", id).Msg("Backup deleted")
	}
	return err
}

func (m *Manager) delete(ctx context.Context, id string) error {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	entries, err := m.loadIndexLocked(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	removed := entries[i]

	if err := m.saveIndexLocked(ctx, append(entries[:i], entries[i+1:]...)); err != nil {
		return err
	}
	m.removePayload(ctx, removed)
	return nil
}

// removePayload deletes a payload whose index entry is already gone.
func (m *Manager) removePayload(ctx context.Context, b Backup) {
	if err := m.blobs.Delete(ctx, b.PayloadKey); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("backup_id", b.ID).
			Str("payload_key", b.PayloadKey).
			Msg("Failed to delete backup payload, reconcile will remove it")
	}
}
