// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/tenantstore/internal/logging"
)

// Sweeper runs Cache.Sweep on a fixed period as a suture.Service.
type Sweeper struct {
	cache    Cacher
	interval time.Duration
}

// NewSweeper creates a sweeper service. interval <= 0 uses
// DefaultSweepInterval.
func NewSweeper(c Cacher, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{cache: c, interval: interval}
}

// Serve sweeps until ctx is cancelled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.cache.Sweep(); n > 0 {
				logging.Debug().Int("removed", n).Msg("Cache sweep")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *Sweeper) String() string {
	return "cache-sweeper"
}
