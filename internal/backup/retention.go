// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"context"
	"sort"

	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
)

// ApplyRetention prunes automatic backups that exceed the retention
// policy and returns how many were removed. Manual and pre-restore backups
// are never touched, and the newest automatic backup always survives.
func (m *Manager) ApplyRetention(ctx context.Context) (int, error) {
	policy := m.cfg.Retention
	if policy.MaxCount == 0 && policy.MaxAge == 0 {
		return 0, nil
	}

	pruned, err := m.applyRetention(ctx, policy)
	metrics.RecordBackupOperation("retention", err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Backup retention failed")
		return 0, err
	}

	for i := range pruned {
		m.record(ctx, audit.EventTypeBackupPruned, schedulerActor, pruned[i].ID, nil, "Backup pruned by retention policy", map[string]interface{}{
			"created_at": pruned[i].CreatedAt,
		})
	}
	if len(pruned) > 0 {
		logging.Ctx(ctx).Info().Int("deleted", len(pruned)).Msg("Applied backup retention policy")
	}
	return len(pruned), nil
}

func (m *Manager) applyRetention(ctx context.Context, policy RetentionPolicy) ([]Backup, error) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	entries, err := m.loadIndexLocked(ctx)
	if err != nil {
		return nil, err
	}

	automatic := make([]Backup, 0, len(entries))
	for i := range entries {
		if entries[i].Kind == KindAutomatic {
			automatic = append(automatic, entries[i])
		}
	}
	sort.SliceStable(automatic, func(i, j int) bool {
		return automatic[i].CreatedAt.After(automatic[j].CreatedAt)
	})

	now := m.now()
	doomed := make(map[string]bool)
	for i := 1; i < len(automatic); i++ {
		tooMany := policy.MaxCount > 0 && i >= policy.MaxCount
		tooOld := policy.MaxAge > 0 && now.Sub(automatic[i].CreatedAt) > policy.MaxAge
		if tooMany || tooOld {
			doomed[automatic[i].ID] = true
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}

	kept := make([]Backup, 0, len(entries)-len(doomed))
	pruned := make([]Backup, 0, len(doomed))
	for i := range entries {
		if doomed[entries[i].ID] {
			pruned = append(pruned, entries[i])
		} else {
			kept = append(kept, entries[i])
		}
	}

	if err := m.saveIndexLocked(ctx, kept); err != nil {
		return nil, err
	}
	for i := range pruned {
		m.removePayload(ctx, pruned[i])
	}
	return pruned, nil
}
