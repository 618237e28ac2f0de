// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package main is the admin CLI for a tenantstore data directory.
//
// # Application Architecture
//
// Every command opens the same component stack:
//
//  1. Configuration: defaults, optional YAML file, environment (Koanf v2)
//  2. Blob backend: memory, file, BadgerDB, or S3 behind a circuit breaker
//  3. Fallback store: buffers writes the backend rejects (optional)
//  4. Collection store: typed collections over a TTL cache
//  5. Audit logger: per-day audit files with an in-memory fallback
//  6. Backup manager: snapshots, restore, retention
//
// # Commands
//
//	tenantstore backup create --label nightly
//	tenantstore backup list --kind automatic --limit 10
//	tenantstore backup restore <id>
//	tenantstore backup delete <id>
//	tenantstore backup reconcile
//	tenantstore flag set beta --enabled --rollout 25 --allow acct_1,acct_2
//	tenantstore flag eval beta acct_9
//	tenantstore serve
//
// serve runs the cache sweeper, the backup scheduler and the fallback
// flushers under a suture supervisor tree until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
