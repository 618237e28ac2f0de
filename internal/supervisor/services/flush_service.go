// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package services

import (
	"context"
	"time"

	"github.com/tomtom215/tenantstore/internal/logging"
)

// DefaultFlushInterval is used when NewFlushService is given no interval.
const DefaultFlushInterval = 10 * time.Second

// Flusher replays buffered writes into durable storage and reports how
// many it replayed.
//
// Satisfied by:
//   - *blob.FallbackStore
//   - *audit.Logger
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// FlushService periodically flushes a Flusher as a supervised service.
//
// A failed flush is logged and retried on the next tick; the buffered
// entries stay where they are, so there is nothing to gain from a restart.
// On shutdown one final flush runs with a short deadline.
type FlushService struct {
	flusher  Flusher
	name     string
	interval time.Duration
}

// NewFlushService creates a new flush service wrapper.
func NewFlushService(name string, flusher Flusher, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &FlushService{flusher: flusher, name: name, interval: interval}
}

// Serve implements suture.Service.
func (s *FlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.interval)
			s.flush(finalCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

func (s *FlushService) flush(ctx context.Context) {
	n, err := s.flusher.Flush(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("service", s.name).Int("flushed", n).Msg("Flush incomplete, will retry")
		return
	}
	if n > 0 {
		logging.Info().Str("service", s.name).Int("flushed", n).Msg("Flushed buffered writes")
	}
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *FlushService) String() string {
	return s.name
}
