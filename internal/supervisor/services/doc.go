// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package services adapts tenantstore components to suture.Service so the
// supervisor tree can run them.
//
// The cache sweeper and backup scheduler implement suture.Service
// themselves and are added to the tree directly. Components that expose a
// one-shot operation, such as FallbackStore.Flush or audit.Logger.Flush,
// are wrapped by FlushService, which calls them on a fixed period.
//
// Example usage:
//
//	fallback := blob.NewFallbackStore(primary, 256)
//	tree.AddStorageService(services.NewFlushService("blob-fallback-flusher", fallback, 10*time.Second))
package services
