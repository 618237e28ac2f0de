// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package blob

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "test-breaker",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	}
}

func TestBreakerStoreOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	backend := newFailingStore()
	backend.setFailing(true)
	b := NewBreakerStore(backend, testBreakerConfig())

	for i := 0; i < 3; i++ {
		if err := b.Put(ctx, "k", []byte("v")); !errors.Is(err, errUnavailable) {
			t.Fatalf("Put() #%d error = %v, want backend error", i, err)
		}
	}

	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	calls := backend.calls
	if _, err := b.Get(ctx, "k"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Get() error = %v, want ErrOpenState", err)
	}
	if backend.calls != calls {
		t.Error("expected open breaker to skip the backend")
	}
}

func TestBreakerStoreNotFoundIsSuccess(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerStore(NewMemoryStore(), testBreakerConfig())

	for i := 0; i < 10; i++ {
		if _, err := b.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

func TestBreakerStorePassThrough(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerStore(NewMemoryStore(), DefaultBreakerConfig("s3"))

	if err := b.Put(ctx, "a/b.json", []byte("{}")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	keys, err := b.List(ctx, "a/")
	if err != nil || len(keys) != 1 {
		t.Fatalf("List() = %v, %v", keys, err)
	}
	if err := b.Delete(ctx, "a/b.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}
