// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/backup"
	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/cache"
	"github.com/tomtom215/tenantstore/internal/config"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/store"
)

// app holds the opened component stack for one command.
type app struct {
	cfg *config.Config

	// primary is the configured backend. blobs is what the store writes
	// through: primary itself, or primary behind the fallback ring.
	primary  blob.Store
	fallback *blob.FallbackStore
	blobs    blob.Store

	cache   *cache.Cache
	store   *store.Store
	audit   *audit.Logger
	backups *backup.Manager
}

// openApp wires the component stack described by cfg.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	primary, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, primary: primary, blobs: primary}
	if cfg.Store.FallbackEnabled {
		a.fallback = blob.NewFallbackStore(primary, cfg.Store.FallbackCapacity)
		a.blobs = a.fallback
	}

	a.cache = cache.New("collections", cfg.Store.CacheTTL)
	a.store = store.New(a.blobs, a.cache)

	// Audit writes go straight to the backend so they degrade into the
	// audit logger's own memory ring rather than the blob fallback.
	a.audit = audit.NewLogger(audit.NewBlobStore(primary), &audit.Config{
		Enabled:        cfg.Audit.Enabled,
		LogLevel:       audit.SeverityInfo,
		BufferSize:     cfg.Audit.BufferSize,
		MemoryCapacity: cfg.Audit.MemoryCapacity,
	})

	a.backups, err = backup.NewManager(backupConfig(cfg.Backup), a.store, a.blobs)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.backups.SetAuditor(a.audit)

	logging.Debug().
		Str("backend", cfg.Store.Backend).
		Bool("fallback", cfg.Store.FallbackEnabled).
		Dur("cache_ttl", cfg.Store.CacheTTL).
		Msg("Store opened")
	return a, nil
}

// openBackend opens the blob store selected by store.backend.
func openBackend(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return blob.NewMemoryStore(), nil
	case config.BackendFile:
		fs, err := blob.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.BackendBadger:
		db, err := blob.OpenBadger(blob.BadgerConfig{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendS3:
		s3, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewBreakerStore(s3, blob.DefaultBreakerConfig("s3")), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func backupConfig(c config.BackupConfig) backup.Config {
	return backup.Config{
		Enabled:     c.Enabled,
		Compression: c.Compression,
		Encryption: backup.EncryptionConfig{
			Enabled: c.EncryptionEnabled,
			Secret:  c.EncryptionSecret,
		},
		Schedule: backup.ScheduleConfig{
			Enabled:  c.ScheduleEnabled,
			Interval: c.ScheduleInterval,
		},
		Retention: backup.RetentionPolicy{
			MaxCount: c.RetentionMaxCount,
			MaxAge:   c.RetentionMaxAge,
		},
	}
}

// Close drains the audit logger, replays degraded writes and closes the
// backend. Entries that still cannot be written are reported, not lost
// silently.
func (a *app) Close(ctx context.Context) error {
	var errs []error

	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit logger: %w", err))
		}
		if n, err := a.audit.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush audit events: %w", err))
		} else if n > 0 {
			logging.Info().Int("flushed", n).Msg("Replayed buffered audit events")
		}
		if pending := a.audit.Pending(); pending > 0 {
			logging.Warn().Int("pending", pending).Msg("Audit events not persisted")
		}
	}

	if a.fallback != nil {
		if n, err := a.fallback.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush degraded writes: %w", err))
		} else if n > 0 {
			logging.Info().Int("flushed", n).Msg("Replayed degraded writes")
		}
		if pending := a.fallback.Degraded(); pending > 0 {
			logging.Warn().Int("pending", pending).Msg("Degraded writes lost on exit")
		}
	}

	if a.primary != nil {
		if err := a.primary.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close blob store: %w", err))
		}
	}
	return errors.Join(errs...)
}
