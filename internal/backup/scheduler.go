// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"context"
	"time"

	"github.com/tomtom215/tenantstore/internal/logging"
)

// schedulerActor marks backups and prunes done by the scheduler. It is
// audited as the system actor.
const schedulerActor = "scheduler"

// Scheduler creates automatic backups on a fixed interval and applies the
// retention policy after each one. It implements suture.Service.
type Scheduler struct {
	manager  *Manager
	interval time.Duration
}

// Scheduler returns the manager's scheduler service.
func (m *Manager) Scheduler() *Scheduler {
	return &Scheduler{manager: m, interval: m.cfg.Schedule.Interval}
}

// Serve runs scheduled backups until ctx is cancelled. A failed backup is
// logged and retried on the next tick rather than restarting the service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Backup scheduler started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Backup scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one scheduled backup followed by retention.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	if _, err := s.manager.Create(ctx, CreateOptions{
		Kind:      KindAutomatic,
		CreatedBy: schedulerActor,
	}); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Scheduled backup failed")
		return
	}
	if _, err := s.manager.ApplyRetention(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Scheduled retention failed")
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "backup-scheduler"
}
