// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/cache"
	"github.com/tomtom215/tenantstore/internal/codec"
	"github.com/tomtom215/tenantstore/internal/models"
	"github.com/tomtom215/tenantstore/internal/validation"
)

// testClock hands out strictly increasing timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// flakyStore fails writes while fail is set.
type flakyStore struct {
	*blob.MemoryStore
	mu   sync.Mutex
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyStore) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.MemoryStore.Put(ctx, key, data)
}

func newTestStore(t *testing.T) (*Store, *blob.MemoryStore) {
	t.Helper()
	blobs := blob.NewMemoryStore()
	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	// A long TTL makes every read after a persist depend on invalidation.
	s := New(blobs, cache.New("store-test", time.Hour), WithClock(clock.Now))
	return s, blobs
}

func mustCreateAccount(t *testing.T, s *Store, ext string, credits int64) *models.Account {
	t.Helper()
	acct, err := s.CreateAccount(context.Background(), models.NewAccount{ExternalID: ext, Credits: credits})
	if err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", ext, err)
	}
	return acct
}

func TestCreateAccountIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	first := mustCreateAccount(t, s, "auth0|alice", 10)
	second := mustCreateAccount(t, s, "auth0|alice", 99)

	if first.ID != second.ID {
		t.Errorf("second create returned id %s, want %s", second.ID, first.ID)
	}
	if second.Credits != 10 {
		t.Errorf("second create changed credits to %d", second.Credits)
	}

	accounts, _ := s.ListAccounts(ctx)
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].Role != models.RoleBase || accounts[0].Status != models.AccountActive {
		t.Errorf("unexpected defaults: role=%s status=%s", accounts[0].Role, accounts[0].Status)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	s, _ := newTestStore(t)

	tests := []struct {
		name  string
		in    models.NewAccount
		field string
	}{
		{"missing external id", models.NewAccount{}, "external_id"},
		{"negative credits", models.NewAccount{ExternalID: "x", Credits: -1}, "credits"},
		{"bad role", models.NewAccount{ExternalID: "x", Role: "root"}, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateAccount(context.Background(), tt.in)
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !verr.Has(tt.field) {
				t.Errorf("expected error on %s, got %+v", tt.field, verr.Fields)
			}
		})
	}
}

func TestLookupMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if a, err := s.GetAccount(ctx, "nope"); a != nil || err != nil {
		t.Errorf("GetAccount() = %v, %v; want nil, nil", a, err)
	}
	if a, err := s.GetAccountByExternalID(ctx, "nope"); a != nil || err != nil {
		t.Errorf("GetAccountByExternalID() = %v, %v; want nil, nil", a, err)
	}
	if f, err := s.GetFeatureFlag(ctx, "nope"); f != nil || err != nil {
		t.Errorf("GetFeatureFlag() = %v, %v; want nil, nil", f, err)
	}
	if k, err := s.GetAPIKeyByHash(ctx, "nope"); k != nil || err != nil {
		t.Errorf("GetAPIKeyByHash() = %v, %v; want nil, nil", k, err)
	}
}

func TestMutationOfMissingRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.AddCredits(ctx, "nope", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddCredits() error = %v, want ErrNotFound", err)
	}
	if _, err := s.MarkNotificationRead(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkNotificationRead() error = %v, want ErrNotFound", err)
	}
	removed, err := s.DeleteCampaign(ctx, "nope")
	if removed || err != nil {
		t.Errorf("DeleteCampaign() = %v, %v; want false, nil", removed, err)
	}
}

func TestAddCreditsRejectsNegative(t *testing.T) {
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 5)

	if _, err := s.AddCredits(context.Background(), acct.ID, -1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("AddCredits(-1) error = %v, want ErrInvalidAmount", err)
	}
}

func TestDebit(t *testing.T) {
	tests := []struct {
		balance, used, want int64
	}{
		{10, 3, 7},
		{3, 3, 0},
		{3, 5, 0},
		{0, 1, 0},
		{0, 0, 0},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := debit(tt.balance, tt.used); got != tt.want {
			t.Errorf("debit(%d, %d) = %d, want %d", tt.balance, tt.used, got, tt.want)
		}
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 20)

	want := int64(20)
	for _, used := range []int64{4, 0, 9, 13, 2, 100, 0, 1} {
		if _, err := s.RecordUsage(ctx, models.NewUsageEvent{AccountID: acct.ID, Feature: models.FeatureChat, CreditsUsed: used}); err != nil {
			t.Fatalf("RecordUsage() error = %v", err)
		}
		want = max(0, want-used)

		got, _ := s.GetAccount(ctx, acct.ID)
		if got.Credits < 0 {
			t.Fatalf("balance went negative: %d", got.Credits)
		}
		if got.Credits != want {
			t.Fatalf("balance = %d, want %d", got.Credits, want)
		}
	}
}

func TestRecordUsageClampsAtZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "A", 3)

	event, err := s.RecordUsage(ctx, models.NewUsageEvent{
		AccountID:   acct.ID,
		Feature:     models.FeatureImage,
		CreditsUsed: 5,
		Metadata:    map[string]string{"model": "sdxl"},
	})
	if err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}

	events, _ := s.ListUsageByAccount(ctx, acct.ID)
	if len(events) != 1 || events[0].ID != event.ID {
		t.Fatalf("expected the one new usage event, got %+v", events)
	}
	if events[0].Metadata["model"] != "sdxl" {
		t.Errorf("metadata not kept: %v", events[0].Metadata)
	}

	got, _ := s.GetAccount(ctx, acct.ID)
	if got.Credits != 0 {
		t.Errorf("credits = %d, want 0", got.Credits)
	}
	if got.UsageCount != acct.UsageCount+1 {
		t.Errorf("usage count = %d, want %d", got.UsageCount, acct.UsageCount+1)
	}
}

func TestRecordUsageUnknownAccount(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	other := mustCreateAccount(t, s, "other", 10)

	event, err := s.RecordUsage(ctx, models.NewUsageEvent{AccountID: "ghost", Feature: models.FeatureSEO, CreditsUsed: 2})
	if err != nil {
		t.Fatalf("RecordUsage() error = %v, want nil", err)
	}
	if event == nil {
		t.Fatal("RecordUsage() returned nil event")
	}

	if got, _ := s.GetUsageEvent(ctx, event.ID); got == nil {
		t.Error("usage event was not recorded")
	}
	accounts, _ := s.ListAccounts(ctx)
	if len(accounts) != 1 {
		t.Fatalf("account count = %d, want 1", len(accounts))
	}
	if accounts[0].Credits != other.Credits || accounts[0].UsageCount != 0 {
		t.Errorf("unrelated account modified: %+v", accounts[0])
	}
}

func TestRecordUsageKeepsEventWhenDebitFails(t *testing.T) {
	ctx := context.Background()
	blobs := &flakyStore{MemoryStore: blob.NewMemoryStore()}
	s := New(blobs, cache.New("flaky", time.Hour))
	acct := mustCreateAccount(t, s, "ext", 10)

	// Let the usage write through, then fail the users write.
	var calls int
	s.Registry().OnInvalidate(CollectionUsage, func(string) {
		calls++
		blobs.setFail(true)
	})

	_, err := s.RecordUsage(ctx, models.NewUsageEvent{AccountID: acct.ID, Feature: models.FeatureChat, CreditsUsed: 1})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("RecordUsage() error = %v, want wrapped disk full", err)
	}
	blobs.setFail(false)

	events, _ := s.ListUsageByAccount(ctx, acct.ID)
	if calls != 1 || len(events) != 1 {
		t.Errorf("expected the usage event to be durable, got %d events", len(events))
	}
	got, _ := s.GetAccount(ctx, acct.ID)
	if got.Credits != 10 {
		t.Errorf("credits = %d, want 10 after failed debit", got.Credits)
	}
}

func TestConcurrentDebitsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 100)

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordUsage(ctx, models.NewUsageEvent{AccountID: acct.ID, Feature: models.FeatureChat, CreditsUsed: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordUsage() error = %v", err)
		}
	}

	got, _ := s.GetAccount(ctx, acct.ID)
	if got.Credits != 50 {
		t.Errorf("credits = %d, want 50", got.Credits)
	}
	if got.UsageCount != workers {
		t.Errorf("usage count = %d, want %d", got.UsageCount, workers)
	}
	events, _ := s.ListUsageByAccount(ctx, acct.ID)
	if len(events) != workers {
		t.Errorf("usage events = %d, want %d", len(events), workers)
	}
}

func TestCacheCoherenceAfterPersist(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 10)

	// Prime the cache, then change the blob behind the store's back.
	if got, _ := s.GetAccount(ctx, acct.ID); got == nil {
		t.Fatal("account not found")
	}
	stale := []models.Account{*acct}
	stale[0].Name = "changed outside"
	if err := codec.Write(ctx, blobs, CollectionUsers, stale); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetAccount(ctx, acct.ID); got.Name != "" {
		t.Fatalf("expected cached view, got name %q", got.Name)
	}

	name := "Alice"
	if _, err := s.UpdateAccount(ctx, acct.ID, models.AccountUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if _, ok := s.cache.Get(CacheKey(CollectionUsers)); ok {
		t.Error("collection cache key survived persist")
	}

	got, _ := s.GetAccount(ctx, acct.ID)
	if got.Name != "Alice" {
		t.Errorf("name = %q after persist, want Alice", got.Name)
	}
	durable := codec.Read[models.Account](ctx, blobs, CollectionUsers)
	if len(durable) != 1 || durable[0].Name != "Alice" {
		t.Errorf("durable view = %+v", durable)
	}
}

func TestPersistInvalidatesDerivedKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 1)

	s.cache.Set("users:ext:ext", acct)
	s.cache.Set("campaigns:all", "untouched")

	var fired []string
	s.Registry().OnInvalidate(CollectionUsers, func(name string) { fired = append(fired, name) })

	if _, err := s.AddCredits(ctx, acct.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.cache.Get("users:ext:ext"); ok {
		t.Error("derived users key survived persist")
	}
	if _, ok := s.cache.Get("campaigns:all"); !ok {
		t.Error("unrelated key was invalidated")
	}
	if len(fired) != 1 || fired[0] != CollectionUsers {
		t.Errorf("callbacks fired = %v", fired)
	}
}

func TestPersistFailurePropagatesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	blobs := &flakyStore{MemoryStore: blob.NewMemoryStore()}
	s := New(blobs, cache.New("flaky", time.Hour))
	mustCreateAccount(t, s, "ext", 1)
	s.ListAccounts(ctx)

	blobs.setFail(true)
	_, err := s.CreateAccount(ctx, models.NewAccount{ExternalID: "second"})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("CreateAccount() error = %v, want wrapped disk full", err)
	}
	if _, ok := s.cache.Get(CacheKey(CollectionUsers)); ok {
		t.Error("cache still holds the collection after a failed persist")
	}
	blobs.setFail(false)

	accounts, _ := s.ListAccounts(ctx)
	if len(accounts) != 1 {
		t.Errorf("accounts = %d, want 1", len(accounts))
	}
}

func TestCorruptCollectionReadsEmpty(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore(t)
	if err := blobs.Put(ctx, codec.Key(CollectionCampaigns), []byte("{{{")); err != nil {
		t.Fatal(err)
	}

	campaigns, err := s.ListCampaigns(ctx)
	if err != nil || len(campaigns) != 0 {
		t.Errorf("ListCampaigns() = %v, %v; want empty, nil", campaigns, err)
	}

	// Other collections are unaffected and the next write repairs the blob.
	mustCreateAccount(t, s, "ext", 1)
	if _, err := s.CreateCampaign(ctx, models.NewCampaign{Name: "spring"}); err != nil {
		t.Fatal(err)
	}
	if campaigns, _ = s.ListCampaigns(ctx); len(campaigns) != 1 {
		t.Errorf("campaigns = %d, want 1", len(campaigns))
	}
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 10)
	if _, err := s.UpsertFeatureFlag(ctx, models.FeatureFlagInput{Key: "beta", Enabled: true, Rollout: 10}); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.RecordCount() != 2 {
		t.Errorf("RecordCount() = %d, want 2", snap.RecordCount())
	}

	// The snapshot must not alias live data.
	snap.Users[0].Credits = 999
	if got, _ := s.GetAccount(ctx, acct.ID); got.Credits != 10 {
		t.Fatalf("snapshot aliases the cache: credits = %d", got.Credits)
	}
	snap.Users[0].Credits = 10

	if _, err := s.AddCredits(ctx, acct.ID, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteFeatureFlag(ctx, "beta"); err != nil {
		t.Fatal(err)
	}
	mustCreateAccount(t, s, "late", 0)

	if err := s.Restore(ctx, snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	accounts, _ := s.ListAccounts(ctx)
	if len(accounts) != 1 || accounts[0].Credits != 10 {
		t.Errorf("accounts after restore = %+v", accounts)
	}
	if f, _ := s.GetFeatureFlag(ctx, "beta"); f == nil {
		t.Error("flag not restored")
	}
}

func TestLoadedRecordsDoNotAliasCache(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.UpsertFeatureFlag(ctx, models.FeatureFlagInput{Key: "beta", Enabled: true, AllowList: []string{"alice"}}); err != nil {
		t.Fatal(err)
	}
	f, _ := s.GetFeatureFlag(ctx, "beta")
	f.AllowList[0] = "mallory"
	flags, _ := s.ListFeatureFlags(ctx)
	flags[0].AllowList[0] = "eve"

	if !s.IsFeatureEnabled(ctx, "beta", "alice") {
		t.Error("editing a returned flag changed the cached allow-list")
	}
	if s.IsFeatureEnabled(ctx, "beta", "mallory") || s.IsFeatureEnabled(ctx, "beta", "eve") {
		t.Error("edits to returned flags leaked into the cache")
	}

	acct := mustCreateAccount(t, s, "ext", 1)
	if _, err := s.RecordLogin(ctx, acct.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetAccount(ctx, acct.ID)
	*got.LastLoginAt = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	again, _ := s.GetAccount(ctx, acct.ID)
	if again.LastLoginAt.Year() == 2016 {
		t.Error("editing a returned timestamp changed the cached account")
	}
}

func TestSnapshotNeverSplitsRecordUsage(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	acct := mustCreateAccount(t, s, "ext", 1000)

	const debits = 100
	var wg sync.WaitGroup
	for i := 0; i < debits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RecordUsage(ctx, models.NewUsageEvent{AccountID: acct.ID, Feature: models.FeatureChat, CreditsUsed: 1}); err != nil {
				t.Errorf("RecordUsage() error = %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for snapshots := 0; ; snapshots++ {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if len(snap.Users) != 1 {
			t.Fatalf("users in snapshot = %d", len(snap.Users))
		}
		used := int64(len(snap.Usage))
		if snap.Users[0].UsageCount != used || snap.Users[0].Credits != 1000-used {
			t.Fatalf("snapshot %d split a usage record: %d events, usage count %d, credits %d",
				snapshots, used, snap.Users[0].UsageCount, snap.Users[0].Credits)
		}

		select {
		case <-done:
			return
		default:
		}
	}
}
