// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package backup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/blob"
	"github.com/tomtom215/tenantstore/internal/cache"
	"github.com/tomtom215/tenantstore/internal/codec"
	"github.com/tomtom215/tenantstore/internal/models"
	"github.com/tomtom215/tenantstore/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// countingStore records every key read and can refuse deletes.
type countingStore struct {
	*blob.MemoryStore
	mu         sync.Mutex
	reads      []string
	failDelete bool
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.reads = append(c.reads, key)
	c.mu.Unlock()
	return c.MemoryStore.Get(ctx, key)
}

func (c *countingStore) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	fail := c.failDelete
	c.mu.Unlock()
	if fail {
		return errors.New("delete refused")
	}
	return c.MemoryStore.Delete(ctx, key)
}

func (c *countingStore) resetReads() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = nil
}

func (c *countingStore) payloadReads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.reads {
		if strings.HasPrefix(k, PayloadPrefix) {
			n++
		}
	}
	return n
}

// recordingAuditor keeps audit events in order.
type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.EventType
	fails  int
}

func (r *recordingAuditor) LogAdminAction(_ context.Context, eventType audit.EventType, _ audit.Actor, _ *audit.Target, outcome audit.Outcome, _ string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	if outcome == audit.OutcomeFailure {
		r.fails++
	}
}

func (r *recordingAuditor) count(t audit.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store   *store.Store
	blobs   *countingStore
	manager *Manager
	auditor *recordingAuditor
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	blobs := &countingStore{MemoryStore: blob.NewMemoryStore()}
	s := store.New(blobs, cache.New("backup-test", time.Hour))
	m, err := NewManager(cfg, s, blobs)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		base = base.Add(time.Minute)
		return base
	}

	rec := &recordingAuditor{}
	m.SetAuditor(rec)
	return &fixture{store: s, blobs: blobs, manager: m, auditor: rec}
}

func (f *fixture) account(t *testing.T, ext string, credits int64) *models.Account {
	t.Helper()
	acct, err := f.store.CreateAccount(context.Background(), models.NewAccount{ExternalID: ext, Credits: credits})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return acct
}

func (f *fixture) create(t *testing.T, kind Kind) *Backup {
	t.Helper()
	b, err := f.manager.Create(context.Background(), CreateOptions{Kind: kind, CreatedBy: "tester"})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", kind, err)
	}
	return b
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	f.account(t, "alice", 10)
	f.account(t, "bob", 3)

	first := f.create(t, KindManual)
	second := f.create(t, KindAutomatic)

	if first.RecordCount != 2 || first.RecordCounts[store.CollectionUsers] != 2 {
		t.Errorf("record counts = %d %v, want 2 users", first.RecordCount, first.RecordCounts)
	}
	if !first.Compressed || first.Encrypted {
		t.Errorf("pipeline = compressed %v encrypted %v, want zstd only", first.Compressed, first.Encrypted)
	}
	if first.Label == "" || first.Checksum == "" {
		t.Error("expected a default label and a checksum")
	}
	if f.auditor.count(audit.EventTypeBackupCreated) != 2 {
		t.Errorf("backup.created events = %d, want 2", f.auditor.count(audit.EventTypeBackupCreated))
	}

	f.blobs.resetReads()
	list, err := f.manager.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("List() = %+v, want newest first", list)
	}
	if n := f.blobs.payloadReads(); n != 0 {
		t.Errorf("List() read %d payloads, want 0", n)
	}

	kind := KindManual
	manual, _ := f.manager.List(ctx, ListOptions{Kind: &kind})
	if len(manual) != 1 || manual[0].ID != first.ID {
		t.Errorf("List(manual) = %+v", manual)
	}

	page, _ := f.manager.List(ctx, ListOptions{Offset: 1, Limit: 5})
	if len(page) != 1 || page[0].ID != first.ID {
		t.Errorf("List(offset 1) = %+v", page)
	}
	if empty, _ := f.manager.List(ctx, ListOptions{Offset: 9}); len(empty) != 0 {
		t.Errorf("List(offset 9) = %+v, want empty", empty)
	}

	got, err := f.manager.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Errorf("Get(missing) = %v, %v, want nil, nil", got, err)
	}
}

func TestCreateDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	f := newFixture(t, cfg)

	if _, err := f.manager.Create(context.Background(), CreateOptions{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Create() error = %v, want ErrDisabled", err)
	}
	if list, err := f.manager.List(context.Background(), ListOptions{}); err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v, want empty", list, err)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if _, err := f.manager.Create(context.Background(), CreateOptions{Kind: "weekly"}); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	acct := f.account(t, "alice", 10)

	b := f.create(t, KindManual)

	if _, err := f.store.AddCredits(ctx, acct.ID, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.UpsertFeatureFlag(ctx, models.FeatureFlagInput{Key: "beta", Enabled: true, Rollout: 100}); err != nil {
		t.Fatal(err)
	}
	// Warm the cache so a missed invalidation would show stale data.
	if got, _ := f.store.GetAccount(ctx, acct.ID); got.Credits != 15 {
		t.Fatalf("credits before restore = %d, want 15", got.Credits)
	}

	invalidated := 0
	f.store.Registry().OnInvalidate(store.CollectionUsers, func(string) { invalidated++ })

	result, err := f.manager.Restore(ctx, b.ID, RestoreOptions{CreatePreRestoreBackup: true, RestoredBy: "tester"})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RecordsRestored != 1 || result.PreRestoreBackupID == "" {
		t.Errorf("result = %+v", result)
	}
	if invalidated == 0 {
		t.Error("restore did not invalidate the users collection")
	}

	got, err := f.store.GetAccount(ctx, acct.ID)
	if err != nil || got == nil {
		t.Fatalf("GetAccount() = %v, %v", got, err)
	}
	if got.Credits != 10 {
		t.Errorf("credits after restore = %d, want 10", got.Credits)
	}
	if flag, _ := f.store.GetFeatureFlag(ctx, "beta"); flag != nil {
		t.Errorf("flag created after the backup survived restore: %+v", flag)
	}

	pre, _ := f.manager.Get(ctx, result.PreRestoreBackupID)
	if pre == nil || pre.Kind != KindPreRestore || pre.RecordCount != 2 {
		t.Errorf("pre-restore backup = %+v", pre)
	}
	restored, _ := f.manager.Get(ctx, b.ID)
	if restored.RestoreCount != 1 || restored.LastRestoredAt == nil {
		t.Errorf("restore bookkeeping = %d %v", restored.RestoreCount, restored.LastRestoredAt)
	}
	if f.auditor.count(audit.EventTypeBackupRestored) != 1 {
		t.Error("expected one backup.restored event")
	}
}

func TestRestoreNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	f.account(t, "alice", 1)

	if _, err := f.manager.Restore(ctx, "missing", RestoreOptions{}); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("Restore(missing) error = %v, want ErrBackupNotFound", err)
	}

	b := f.create(t, KindManual)
	if err := f.blobs.MemoryStore.Delete(ctx, b.PayloadKey); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.Restore(ctx, b.ID, RestoreOptions{}); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("Restore(payload gone) error = %v, want ErrBackupNotFound", err)
	}
	if f.auditor.fails != 2 {
		t.Errorf("failed audit events = %d, want 2", f.auditor.fails)
	}
}

func TestRestoreChecksumMismatchLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	acct := f.account(t, "alice", 10)
	b := f.create(t, KindManual)

	if _, err := f.store.AddCredits(ctx, acct.ID, 5); err != nil {
		t.Fatal(err)
	}
	if err := f.blobs.Put(ctx, b.PayloadKey, []byte("tampered")); err != nil {
		t.Fatal(err)
	}

	if _, err := f.manager.Restore(ctx, b.ID, RestoreOptions{}); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Restore() error = %v, want ErrChecksumMismatch", err)
	}
	if got, _ := f.store.GetAccount(ctx, acct.ID); got.Credits != 15 {
		t.Errorf("credits = %d, want 15 (store must be untouched)", got.Credits)
	}

	v, err := f.manager.Verify(ctx, b.ID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if v.Valid || v.ChecksumValid {
		t.Errorf("Verify() = %+v, want invalid checksum", v)
	}
}

func TestEncryptedCompressedPipeline(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Encryption = EncryptionConfig{Enabled: true, Secret: testSecret}
	f := newFixture(t, cfg)
	acct := f.account(t, "very-recognizable-external-id", 42)

	b := f.create(t, KindManual)
	if !b.Compressed || !b.Encrypted || !strings.HasSuffix(b.PayloadKey, ".json.zst.enc") {
		t.Fatalf("backup = %+v, want zstd then encryption", b)
	}

	stored, err := f.blobs.MemoryStore.Get(ctx, b.PayloadKey)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(stored, []byte("very-recognizable-external-id")) {
		t.Error("payload stored in the clear")
	}

	v, err := f.manager.Verify(ctx, b.ID)
	if err != nil || !v.Valid || v.RecordCount != 1 {
		t.Fatalf("Verify() = %+v, %v", v, err)
	}

	if _, err := f.store.AddCredits(ctx, acct.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.Restore(ctx, b.ID, RestoreOptions{}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got, _ := f.store.GetAccount(ctx, acct.ID); got.Credits != 42 {
		t.Errorf("credits = %d, want 42", got.Credits)
	}

	tests := []struct {
		name    string
		secret  string
		wantErr error
	}{
		{name: "wrong secret", secret: "ffffffffffffffffffffffffffffffff"},
		{name: "no secret", secret: "", wantErr: ErrEncryptionKeyMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := DefaultConfig()
			if tt.secret != "" {
				other.Encryption = EncryptionConfig{Enabled: true, Secret: tt.secret}
			}
			m, err := NewManager(other, f.store, f.blobs)
			if err != nil {
				t.Fatal(err)
			}
			_, err = m.Restore(ctx, b.ID, RestoreOptions{})
			if err == nil {
				t.Fatal("expected restore to fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSealUnsealStages(t *testing.T) {
	raw := []byte(`{"users":[{"id":"a"}]}`)
	tests := []struct {
		name       string
		compressed bool
		secret     string
	}{
		{name: "plain"},
		{name: "zstd", compressed: true},
		{name: "encrypted", secret: testSecret},
		{name: "zstd and encrypted", compressed: true, secret: testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := seal(raw, "id-1", tt.compressed, tt.secret)
			if err != nil {
				t.Fatal(err)
			}
			b := &Backup{ID: "id-1", Compressed: tt.compressed, Encrypted: tt.secret != ""}
			got, err := unseal(stored, b, tt.secret)
			if err != nil {
				t.Fatalf("unseal() error = %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Errorf("unseal() = %s, want %s", got, raw)
			}
		})
	}

	t.Run("ciphertext is bound to the backup id", func(t *testing.T) {
		stored, err := seal(raw, "id-1", false, testSecret)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := unseal(stored, &Backup{ID: "id-2", Encrypted: true}, testSecret); err == nil {
			t.Error("expected decrypting under another id to fail")
		}
	})
}

func TestDeleteAndReconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	f.account(t, "alice", 1)

	kept := f.create(t, KindManual)
	gone := f.create(t, KindManual)

	if err := f.manager.Delete(ctx, gone.ID, "tester"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if b, _ := f.manager.Get(ctx, gone.ID); b != nil {
		t.Error("deleted backup still indexed")
	}
	if _, err := f.blobs.MemoryStore.Get(ctx, gone.PayloadKey); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("payload after delete: %v, want ErrNotFound", err)
	}
	if err := f.manager.Delete(ctx, "missing", "tester"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrBackupNotFound", err)
	}

	// A payload delete failure leaves an orphan but still succeeds.
	orphan := f.create(t, KindManual)
	f.blobs.mu.Lock()
	f.blobs.failDelete = true
	f.blobs.mu.Unlock()
	if err := f.manager.Delete(ctx, orphan.ID, "tester"); err != nil {
		t.Fatalf("Delete() with failing payload removal error = %v", err)
	}
	f.blobs.mu.Lock()
	f.blobs.failDelete = false
	f.blobs.mu.Unlock()

	// An index entry whose payload vanished.
	missing := f.create(t, KindManual)
	if err := f.blobs.MemoryStore.Delete(ctx, missing.PayloadKey); err != nil {
		t.Fatal(err)
	}

	result, err := f.manager.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(result.OrphanPayloads) != 1 || result.OrphanPayloads[0] != orphan.PayloadKey {
		t.Errorf("OrphanPayloads = %v, want [%s]", result.OrphanPayloads, orphan.PayloadKey)
	}
	if len(result.MissingPayloads) != 1 || result.MissingPayloads[0] != missing.ID {
		t.Errorf("MissingPayloads = %v, want [%s]", result.MissingPayloads, missing.ID)
	}

	list, _ := f.manager.List(ctx, ListOptions{})
	if len(list) != 1 || list[0].ID != kept.ID {
		t.Errorf("List() after reconcile = %+v, want only %s", list, kept.ID)
	}

	again, err := f.manager.Reconcile(ctx)
	if err != nil || len(again.OrphanPayloads) != 0 || len(again.MissingPayloads) != 0 {
		t.Errorf("second Reconcile() = %+v, %v, want nothing to do", again, err)
	}
}

func TestCorruptIndexIsAnError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	if err := f.blobs.Put(ctx, IndexKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	if _, err := f.manager.List(ctx, ListOptions{}); err == nil {
		t.Error("List() on a corrupt index should fail")
	}
	if _, err := f.manager.Create(ctx, CreateOptions{}); err == nil {
		t.Fatal("Create() on a corrupt index should fail")
	}
	if data, _ := f.blobs.MemoryStore.Get(ctx, IndexKey); string(data) != "{not json" {
		t.Errorf("corrupt index was overwritten: %s", data)
	}
	keys, _ := f.blobs.List(ctx, PayloadPrefix)
	if len(keys) != 0 {
		t.Errorf("payloads left behind by failed Create: %v", keys)
	}
}

func TestApplyRetention(t *testing.T) {
	ctx := context.Background()

	t.Run("max count", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retention = RetentionPolicy{MaxCount: 2}
		f := newFixture(t, cfg)

		manual := f.create(t, KindManual)
		var automatic []*Backup
		for i := 0; i < 4; i++ {
			automatic = append(automatic, f.create(t, KindAutomatic))
		}
		pre := f.create(t, KindPreRestore)

		n, err := f.manager.ApplyRetention(ctx)
		if err != nil {
			t.Fatalf("ApplyRetention() error = %v", err)
		}
		if n != 2 {
			t.Errorf("pruned = %d, want 2", n)
		}

		want := map[string]bool{manual.ID: true, pre.ID: true, automatic[2].ID: true, automatic[3].ID: true}
		list, _ := f.manager.List(ctx, ListOptions{})
		if len(list) != len(want) {
			t.Fatalf("List() = %d entries, want %d", len(list), len(want))
		}
		for _, b := range list {
			if !want[b.ID] {
				t.Errorf("unexpected survivor %s (%s)", b.ID, b.Kind)
			}
		}
		if _, err := f.blobs.MemoryStore.Get(ctx, automatic[0].PayloadKey); !errors.Is(err, blob.ErrNotFound) {
			t.Error("pruned payload was not deleted")
		}
		if f.auditor.count(audit.EventTypeBackupPruned) != 2 {
			t.Errorf("backup.pruned events = %d, want 2", f.auditor.count(audit.EventTypeBackupPruned))
		}
	})

	t.Run("max age keeps the newest", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retention = RetentionPolicy{MaxAge: time.Hour}
		f := newFixture(t, cfg)

		f.create(t, KindAutomatic)
		newest := f.create(t, KindAutomatic)

		later := newest.CreatedAt.Add(48 * time.Hour)
		f.manager.now = func() time.Time { return later }

		n, err := f.manager.ApplyRetention(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("pruned = %d, want 1", n)
		}
		list, _ := f.manager.List(ctx, ListOptions{})
		if len(list) != 1 || list[0].ID != newest.ID {
			t.Errorf("survivors = %+v, want only the newest", list)
		}
	})

	t.Run("no policy", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Retention = RetentionPolicy{}
		f := newFixture(t, cfg)
		f.create(t, KindAutomatic)
		f.create(t, KindAutomatic)
		if n, err := f.manager.ApplyRetention(ctx); n != 0 || err != nil {
			t.Errorf("ApplyRetention() = %d, %v, want 0, nil", n, err)
		}
	})
}

func TestSchedulerRunOnce(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Retention = RetentionPolicy{MaxCount: 1}
	f := newFixture(t, cfg)

	sched := f.manager.Scheduler()
	if sched.String() != "backup-scheduler" {
		t.Errorf("String() = %q", sched.String())
	}

	sched.RunOnce(ctx)
	sched.RunOnce(ctx)

	kind := KindAutomatic
	list, _ := f.manager.List(ctx, ListOptions{Kind: &kind})
	if len(list) != 1 {
		t.Fatalf("automatic backups = %d, want 1 after retention", len(list))
	}
	if list[0].CreatedBy != schedulerActor {
		t.Errorf("CreatedBy = %q, want %q", list[0].CreatedBy, schedulerActor)
	}
}

func TestSchedulerServeStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule = ScheduleConfig{Enabled: true, Interval: time.Hour}
	f := newFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.manager.Scheduler().Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	f.account(t, "alice", 1)

	stats, err := f.manager.GetStats(ctx)
	if err != nil || stats.TotalCount != 0 || stats.LastBackup != nil {
		t.Fatalf("empty stats = %+v, %v", stats, err)
	}

	f.create(t, KindManual)
	last := f.create(t, KindAutomatic)

	stats, err = f.manager.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCount != 2 || stats.CountByKind[KindManual] != 1 || stats.CountByKind[KindAutomatic] != 1 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.LastBackup == nil || stats.LastBackup.ID != last.ID {
		t.Errorf("LastBackup = %+v, want %s", stats.LastBackup, last.ID)
	}
	if !stats.OldestBackup.Before(*stats.NewestBackup) {
		t.Error("oldest should precede newest")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "disabled skips checks", mutate: func(c *Config) { c.Enabled = false; c.Compression = "lz4" }},
		{name: "no compression", mutate: func(c *Config) { c.Compression = CompressionNone }},
		{name: "unknown compression", mutate: func(c *Config) { c.Compression = "lz4" }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.Encryption = EncryptionConfig{Enabled: true, Secret: "short"} }, wantErr: true},
		{name: "good secret", mutate: func(c *Config) { c.Encryption = EncryptionConfig{Enabled: true, Secret: testSecret} }},
		{name: "interval too short", mutate: func(c *Config) { c.Schedule = ScheduleConfig{Enabled: true, Interval: time.Second} }, wantErr: true},
		{name: "negative max count", mutate: func(c *Config) { c.Retention.MaxCount = -1 }, wantErr: true},
		{name: "negative max age", mutate: func(c *Config) { c.Retention.MaxAge = -time.Hour }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPayloadKey(t *testing.T) {
	tests := []struct {
		compressed, encrypted bool
		want                  string
	}{
		{false, false, "backups/payloads/x.json"},
		{true, false, "backups/payloads/x.json.zst"},
		{false, true, "backups/payloads/x.json.enc"},
		{true, true, "backups/payloads/x.json.zst.enc"},
	}
	for _, tt := range tests {
		if got := PayloadKey("x", tt.compressed, tt.encrypted); got != tt.want {
			t.Errorf("PayloadKey(%v, %v) = %q, want %q", tt.compressed, tt.encrypted, got, tt.want)
		}
	}
}

// populateAll puts at least one record in every collection.
func (f *fixture) populateAll(t *testing.T) map[string]string {
	t.Helper()
	ctx := context.Background()
	acct := f.account(t, "alice", 100)

	tx, err := f.store.CreateTransaction(ctx, models.NewTransaction{AccountID: acct.ID, Kind: models.TransactionPurchase, Amount: 999, Currency: "usd", Credits: 100})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.RecordUsage(ctx, models.NewUsageEvent{AccountID: acct.ID, Feature: models.FeatureImage, CreditsUsed: 3, Metadata: map[string]string{"model": "v2"}}); err != nil {
		t.Fatal(err)
	}
	campaign, err := f.store.CreateCampaign(ctx, models.NewCampaign{Name: "launch"})
	if err != nil {
		t.Fatal(err)
	}
	note, err := f.store.CreateNotification(ctx, models.NewNotification{AccountID: acct.ID, Title: "welcome"})
	if err != nil {
		t.Fatal(err)
	}
	key, _, err := f.store.CreateAPIKey(ctx, models.NewAPIKey{AccountID: acct.ID, Name: "ci", Scopes: []string{"read"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.UpsertFeatureFlag(ctx, models.FeatureFlagInput{Key: "beta", Enabled: true, Rollout: 10, AllowList: []string{"vip"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.UpsertEmailTemplate(ctx, models.EmailTemplateInput{Slug: "welcome", Name: "Welcome", Subject: "Hi", HTMLBody: "<p>Hi</p>", Variables: []string{"name"}}); err != nil {
		t.Fatal(err)
	}

	return map[string]string{
		"account":      acct.ID,
		"transaction":  tx.ID,
		"campaign":     campaign.ID,
		"notification": note.ID,
		"api_key":      key.ID,
	}
}

// collectionBlobs returns the stored bytes of every collection.
func (f *fixture) collectionBlobs(t *testing.T) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte, len(store.Collections))
	for _, name := range store.Collections {
		data, err := f.blobs.MemoryStore.Get(context.Background(), codec.Key(name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		out[name] = data
	}
	return out
}

func TestRestoreEveryCollectionByteForByte(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	ids := f.populateAll(t)

	b := f.create(t, KindManual)
	before := f.collectionBlobs(t)

	active := models.CampaignActive
	subject := "Hello again"
	mutations := []struct {
		name string
		fn   func() error
	}{
		{"users", func() error { _, err := f.store.AddCredits(ctx, ids["account"], 7); return err }},
		{"transactions", func() error {
			_, err := f.store.UpdateTransactionStatus(ctx, ids["transaction"], models.TransactionCompleted, "ch_1")
			return err
		}},
		{"usage", func() error {
			_, err := f.store.RecordUsage(ctx, models.NewUsageEvent{AccountID: ids["account"], Feature: models.FeatureChat, CreditsUsed: 1})
			return err
		}},
		{"campaigns", func() error {
			_, err := f.store.UpdateCampaign(ctx, ids["campaign"], models.CampaignUpdate{Status: &active, AddSent: 10})
			return err
		}},
		{"notifications", func() error { _, err := f.store.MarkNotificationRead(ctx, ids["notification"]); return err }},
		{"api_keys", func() error { _, err := f.store.RevokeAPIKey(ctx, ids["api_key"]); return err }},
		{"feature_flags", func() error {
			_, err := f.store.UpsertFeatureFlag(ctx, models.FeatureFlagInput{Key: "beta", Enabled: false, Rollout: 50})
			return err
		}},
		{"email_templates", func() error {
			_, err := f.store.UpsertEmailTemplate(ctx, models.EmailTemplateInput{Slug: "welcome", Name: "Welcome", Subject: subject, HTMLBody: "<p>Hi</p>"})
			return err
		}},
	}
	for _, m := range mutations {
		if err := m.fn(); err != nil {
			t.Fatalf("mutate %s: %v", m.name, err)
		}
	}

	mutated := f.collectionBlobs(t)
	for _, name := range store.Collections {
		if bytes.Equal(before[name], mutated[name]) {
			t.Errorf("collection %s was not changed before restore", name)
		}
	}

	if _, err := f.manager.Restore(ctx, b.ID, RestoreOptions{RestoredBy: "tester"}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	after := f.collectionBlobs(t)
	for _, name := range store.Collections {
		if !bytes.Equal(before[name], after[name]) {
			t.Errorf("collection %s differs after restore:\nwant %s\ngot  %s", name, before[name], after[name])
		}
	}
}

func TestRestoreWhileDisabledSkipsPreRestoreBackup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	acct := f.account(t, "alice", 10)
	b := f.create(t, KindManual)

	if _, err := f.store.AddCredits(ctx, acct.ID, 5); err != nil {
		t.Fatal(err)
	}
	f.manager.cfg.Enabled = false

	result, err := f.manager.Restore(ctx, b.ID, RestoreOptions{CreatePreRestoreBackup: true, RestoredBy: "tester"})
	if err != nil {
		t.Fatalf("Restore() with backups disabled error = %v", err)
	}
	if result.PreRestoreBackupID != "" {
		t.Errorf("pre-restore backup created while disabled: %s", result.PreRestoreBackupID)
	}
	if got, _ := f.store.GetAccount(ctx, acct.ID); got.Credits != 10 {
		t.Errorf("credits after restore = %d, want 10", got.Credits)
	}
	if backups, _ := f.manager.List(ctx, ListOptions{}); len(backups) != 1 {
		t.Errorf("backups = %d, want only the original", len(backups))
	}
}
