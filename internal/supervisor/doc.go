// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

/*
Package supervisor provides process supervision for tenantstore using suture v4.

# Overview

The supervisor tree runs the store's background housekeeping in two layers:

	RootSupervisor ("tenantstore")
	├── StorageSupervisor ("storage-layer")
	│   ├── FlushService "blob-fallback-flusher" (if STORE_FALLBACK_ENABLED)
	│   └── FlushService "audit-flusher" (if AUDIT_ENABLED)
	└── MaintenanceSupervisor ("maintenance-layer")
	    ├── cache.Sweeper
	    └── backup.Scheduler (if BACKUP_SCHEDULE_ENABLED)

Supervisor events (starts, failures, backoff) are logged through the
sutureslog handler, which the CLI points at zerolog via
logging.NewSlogLogger.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMaintenanceService(cache.NewSweeper(c, cfg.Store.SweepInterval))
	tree.AddMaintenanceService(backups.Scheduler())
	tree.AddStorageService(services.NewFlushService("blob-fallback-flusher", fallback, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Configuration

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Service Interface

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}
*/
package supervisor
