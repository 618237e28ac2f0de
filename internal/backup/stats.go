// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import "context"

// GetStats summarizes the backup index.
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	m.metadataMu.RLock()
	entries, err := m.loadIndexLocked(ctx)
	m.metadataMu.RUnlock()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalCount:  len(entries),
		CountByKind: make(map[Kind]int),
	}
	for i := range entries {
		b := &entries[i]
		stats.CountByKind[b.Kind]++
		stats.TotalSizeBytes += b.SizeBytes
		stats.TotalStoredBytes += b.StoredBytes
		stats.TotalRestoreCount += b.RestoreCount

		created := b.CreatedAt
		if stats.OldestBackup == nil || created.Before(*stats.OldestBackup) {
			stats.OldestBackup = &created
		}
		if stats.NewestBackup == nil || created.After(*stats.NewestBackup) {
			stats.NewestBackup = &created
			latest := *b
			stats.LastBackup = &latest
		}
	}
	return stats, nil
}
