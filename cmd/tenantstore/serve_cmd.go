// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomtom215/tenantstore/internal/cache"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/supervisor"
	"github.com/tomtom215/tenantstore/internal/supervisor/services"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run background housekeeping until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.app)
		},
	}
}

// buildTree assembles the supervisor tree for a.
func buildTree(a *app) (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return nil, err
	}

	tree.AddMaintenanceService(cache.NewSweeper(a.cache, a.cfg.Store.SweepInterval))
	if a.cfg.Backup.Enabled && a.cfg.Backup.ScheduleEnabled {
		tree.AddMaintenanceService(a.backups.Scheduler())
	}

	if a.fallback != nil {
		tree.AddStorageService(services.NewFlushService("blob-fallback-flusher", a.fallback, services.DefaultFlushInterval))
	}
	if a.cfg.Audit.Enabled {
		tree.AddStorageService(services.NewFlushService("audit-flusher", a.audit, services.DefaultFlushInterval))
	}
	return tree, nil
}

// serve runs the supervisor tree until ctx is cancelled.
func serve(ctx context.Context, a *app) error {
	tree, err := buildTree(a)
	if err != nil {
		return err
	}

	logging.Info().
		Str("backend", a.cfg.Store.Backend).
		Bool("backup_schedule", a.cfg.Backup.ScheduleEnabled).
		Msg("Starting tenantstore housekeeping")

	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Tenantstore housekeeping stopped")
	return err
}
