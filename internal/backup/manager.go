// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

/*
manager.go - Core Backup Manager

Metadata Storage:
Backup metadata is kept in one JSON sequence at backups/index.json. Payloads
live under backups/payloads/ and are only read by Restore and Verify.

Write Ordering:
Create writes the payload before the index entry. Delete removes the index
entry before the payload. Either way a crash between the two writes leaves
at most an orphan payload, which is invisible to List and Restore and is
collected by Reconcile.

Thread Safety:
Index mutations hold metadataMu for their whole read-modify-write cycle,
including the payload write, so Reconcile never sees a half-created backup.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/codec"
	"github.com/tomtom215/tenantstore/internal/models"
	"github.com/tomtom215/tenantstore/internal/store"
)

// AppVersion is set at build time
var AppVersion = "dev"

// Snapshotter is the part of the collection store a backup needs.
type Snapshotter interface {
	// Snapshot returns a deep copy of every collection.
	Snapshot(ctx context.Context) (*models.Collections, error)
	// Restore persists every collection through the normal write path.
	Restore(ctx context.Context, c *models.Collections) error
}

// Auditor receives administrative events.
type Auditor interface {
	LogAdminAction(ctx context.Context, eventType audit.EventType, actor audit.Actor, target *audit.Target, outcome audit.Outcome, description string, metadata map[string]interface{})
}

// Manager handles backup and restore operations.
type Manager struct {
	cfg   Config
	store Snapshotter
	blobs blob.Store
	now   func() time.Time

	metadataMu sync.RWMutex

	auditor Auditor

	// Callbacks
	onBackupComplete func(backup *Backup)
	onRestoreStart   func(backupID string)
}

// NewManager creates a new backup manager.
func NewManager(cfg Config, snapshotter Snapshotter, blobs blob.Store) (*Manager, error) {
	if snapshotter == nil || blobs == nil {
		return nil, errors.New("backup manager requires a store and a blob store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backup configuration validation failed: %w", err)
	}
	return &Manager{
		cfg:   cfg,
		store: snapshotter,
		blobs: blobs,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// SetAuditor sets the sink for audit events.
func (m *Manager) SetAuditor(a Auditor) {
	m.auditor = a
}

// SetOnBackupComplete sets the callback for backup completion.
func (m *Manager) SetOnBackupComplete(fn func(backup *Backup)) {
	m.onBackupComplete = fn
}

// SetOnRestoreStart sets the callback for restore start.
func (m *Manager) SetOnRestoreStart(fn func(backupID string)) {
	m.onRestoreStart = fn
}

// loadIndexLocked reads the index. A missing index is empty. A corrupt
// one is an error, because rewriting it from empty would orphan every
// payload.
func (m *Manager) loadIndexLocked(ctx context.Context) ([]Backup, error) {
	data, err := m.blobs.Get(ctx, IndexKey)
	if errors.Is(err, blob.ErrNotFound) || (err == nil && len(data) == 0) {
		return make([]Backup, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup index: %w", err)
	}

	var entries []Backup
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse backup index: %w", err)
	}
	if entries == nil {
		entries = make([]Backup, 0)
	}
	return entries, nil
}

// saveIndexLocked writes the index (must be called with lock held).
func (m *Manager) saveIndexLocked(ctx context.Context, entries []Backup) error {
	data, err := codec.Encode(entries)
	if err != nil {
		return fmt.Errorf("failed to encode backup index: %w", err)
	}
	if err := m.blobs.Put(ctx, IndexKey, data); err != nil {
		return fmt.Errorf("failed to write backup index: %w", err)
	}
	return nil
}

func indexOf(entries []Backup, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

// record forwards an event to the auditor, if any.
func (m *Manager) record(ctx context.Context, eventType audit.EventType, actor string, backupID string, err error, description string, metadata map[string]interface{}) {
	if m.auditor == nil {
		return
	}
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["error"] = err.Error()
	}

	a := audit.OperatorActor(actor)
	if actor == "" || actor == schedulerActor {
		a = audit.SystemActor()
	}

	var target *audit.Target
	if backupID != "" {
		target = &audit.Target{ID: backupID, Type: "backup"}
	}
	m.auditor.LogAdminAction(ctx, eventType, a, target, outcome, description, metadata)
}

func recordCounts(c *models.Collections) map[string]int {
	return map[string]int{
		store.CollectionUsers:          len(c.Users),
		store.CollectionTransactions:   len(c.Transactions),
		store.CollectionUsage:          len(c.Usage),
		store.CollectionCampaigns:      len(c.Campaigns),
		store.CollectionNotifications:  len(c.Notifications),
		store.CollectionAPIKeys:        len(c.APIKeys),
		store.CollectionFeatureFlags:   len(c.FeatureFlags),
		store.CollectionEmailTemplates: len(c.EmailTemplates),
	}
}
