// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package blob

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/tenantstore/internal/logging"
	"github.com/tomtom215/tenantstore/internal/metrics"
)

// BreakerConfig tunes the circuit breaker around a remote backend.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // count reset period while closed
	Timeout      time.Duration // open -> half-open delay
	MinRequests  uint32        // requests needed before tripping
	FailureRatio float64
}

// DefaultBreakerConfig mirrors the settings used for other remote clients.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerStore fails fast with gobreaker.ErrOpenState while the wrapped
// backend is unhealthy. ErrNotFound is a successful outcome.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[[]byte]
	name string
}

// NewBreakerStore wraps next with a circuit breaker.
func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &BreakerStore{next: next, cb: cb, name: cfg.Name}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) execute(fn func() ([]byte, error)) ([]byte, error) {
	out, err := b.cb.Execute(fn)
	switch {
	case err == nil || errors.Is(err, ErrNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return out, err
}

func (b *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	return b.execute(func() ([]byte, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *BreakerStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.next.Put(ctx, key, data)
	})
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.execute(func() ([]byte, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}

func (b *BreakerStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	_, err := b.execute(func() ([]byte, error) {
		var err error
		keys, err = b.next.List(ctx, prefix)
		return nil, err
	})
	return keys, err
}

func (b *BreakerStore) Close() error {
	return b.next.Close()
}
