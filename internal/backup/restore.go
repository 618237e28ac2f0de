// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
	"github.com/tomtom215/tenantstore/internal/models"
)

// Restore replaces every collection with the contents of a backup. The
// payload is fully read and verified before anything is written, so a bad
// backup leaves the store untouched.
func (m *Manager) Restore(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	result, err := m.restore(ctx, id, opts)
	metrics.RecordBackupOperation("restore", err)

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("backup_id", id).Msg("Restore failed")
		m.record(ctx, audit.EventTypeBackupRestored, opts.RestoredBy, id, err, "Restore failed", nil)
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("backup_id", id).
		Str("pre_restore_backup_id", result.PreRestoreBackupID).
		Int("records_restored", result.RecordsRestored).
		Dur("duration", result.Duration).
		Msg("Backup restored")
	m.record(ctx, audit.EventTypeBackupRestored, opts.RestoredBy, id, nil, "Backup restored", map[string]interface{}{
		"records_restored":      result.RecordsRestored,
		"pre_restore_backup_id": result.PreRestoreBackupID,
	})
	return result, nil
}

func (m *Manager) restore(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	startTime := time.Now()

	backup, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if backup == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}

	snap, err := m.readPayload(ctx, backup)
	if err != nil {
		return nil, err
	}

	if m.onRestoreStart != nil {
		m.onRestoreStart(id)
	}

	result := &RestoreResult{BackupID: id}
	switch {
	case opts.CreatePreRestoreBackup && !m.cfg.Enabled:
		// Create refuses while disabled; restoring existing backups stays allowed.
		logging.Ctx(ctx).Warn().Str("backup_id", id).Msg("Backups disabled, restoring without a pre-restore backup")
	case opts.CreatePreRestoreBackup:
		pre, err := m.Create(ctx, CreateOptions{
			Label:     "Pre-restore backup before " + id,
			Kind:      KindPreRestore,
			CreatedBy: opts.RestoredBy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create pre-restore backup: %w", err)
		}
		result.PreRestoreBackupID = pre.ID
	}

	if err := m.store.Restore(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to restore collections: %w", err)
	}
	result.RecordsRestored = snap.RecordCount()
	result.Duration = time.Since(startTime)

	if err := m.markRestored(ctx, id); err != nil {
		// The data is already restored; the counter is informational.
		logging.Ctx(ctx).Warn().Err(err).Str("backup_id", id).Msg("Failed to update restore count")
	}
	return result, nil
}

// markRestored bumps the restore counter of an index entry.
func (m *Manager) markRestored(ctx context.Context, id string) error {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	entries, err := m.loadIndexLocked(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return nil
	}
	now := m.now()
	entries[i].RestoreCount++
	entries[i].LastRestoredAt = &now
	return m.saveIndexLocked(ctx, entries)
}

// readPayload fetches, verifies and decodes a backup payload.
func (m *Manager) readPayload(ctx context.Context, b *Backup) (*models.Collections, error) {
	stored, err := m.blobs.Get(ctx, b.PayloadKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("%w: payload %s is missing", ErrBackupNotFound, b.PayloadKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup payload: %w", err)
	}

	if actual := checksum(stored); actual != b.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, b.Checksum, actual)
	}

	raw, err := unseal(stored, b, m.cfg.Encryption.Secret)
	if err != nil {
		return nil, err
	}

	var snap models.Collections
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode backup payload: %w", err)
	}
	return &snap, nil
}

// Verify checks that a backup's payload exists, matches its checksum and
// decodes. It never modifies the store.
func (m *Manager) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	backup, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if backup == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}

	result := &VerifyResult{
		Backup:           backup,
		ExpectedChecksum: backup.Checksum,
	}

	stored, err := m.blobs.Get(ctx, backup.PayloadKey)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("payload unreadable: %v", err))
		return result, nil
	}
	result.ActualChecksum = checksum(stored)
	result.ChecksumValid = result.ActualChecksum == backup.Checksum
	if !result.ChecksumValid {
		result.Errors = append(result.Errors, "checksum mismatch")
		return result, nil
	}

	snap, err := m.readPayload(ctx, backup)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.PayloadReadable = true
	result.RecordCount = snap.RecordCount()
	if result.RecordCount != backup.RecordCount {
		result.Errors = append(result.Errors,
			fmt.Sprintf("record count mismatch: index has %d, payload has %d", backup.RecordCount, result.RecordCount))
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// Reconcile deletes payloads that no index entry references and drops
// index entries whose payload is gone.
func (m *Manager) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	result, err := m.reconcile(ctx)
	metrics.RecordBackupOperation("reconcile", err)
	if err != nil {
		return nil, err
	}

	if len(result.OrphanPayloads) > 0 || len(result.MissingPayloads) > 0 {
		logging.Ctx(ctx).Warn().
			Strs("orphan_payloads", result.OrphanPayloads).
			Strs("missing_payloads", result.MissingPayloads).
			Msg("Backup storage reconciled")
		m.record(ctx, audit.EventTypeBackupReconciled, "", "", nil, "Backup storage reconciled", map[string]interface{}{
			"orphan_payloads":  len(result.OrphanPayloads),
			"missing_payloads": len(result.MissingPayloads),
		})
	}
	return result, nil
}

func (m *Manager) reconcile(ctx context.Context) (*ReconcileResult, error) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	entries, err := m.loadIndexLocked(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := m.blobs.List(ctx, PayloadPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup payloads: %w", err)
	}

	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	referenced := make(map[string]bool, len(entries))
	result := &ReconcileResult{
		OrphanPayloads:  []string{},
		MissingPayloads: []string{},
	}
	kept := entries[:0]
	for i := range entries {
		if !present[entries[i].PayloadKey] {
			result.MissingPayloads = append(result.MissingPayloads, entries[i].ID)
			continue
		}
		referenced[entries[i].PayloadKey] = true
		kept = append(kept, entries[i])
	}
	if len(result.MissingPayloads) > 0 {
		if err := m.saveIndexLocked(ctx, kept); err != nil {
			return nil, err
		}
	}

	for _, k := range keys {
		if referenced[k] || !strings.HasPrefix(k, PayloadPrefix) {
			continue
		}
		if err := m.blobs.Delete(ctx, k); err != nil {
			return result, fmt.Errorf("failed to delete orphan payload %s: %w", k, err)
		}
		result.OrphanPayloads = append(result.OrphanPayloads, k)
	}
	return result, nil
}
