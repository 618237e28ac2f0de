// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/tenantstore/internal/config"
)

// setupEnv points the CLI at a fresh file-backed data directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := execute(context.Background(), args, &out); err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestBackupCommands(t *testing.T) {
	setupEnv(t)

	var created struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Kind  string `json:"kind"`
	}
	out := run(t, "backup", "create", "--label", "nightly")
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode create output %q: %v", out, err)
	}
	if created.ID == "" || created.Label != "nightly" || created.Kind != "manual" {
		t.Fatalf("unexpected backup: %+v", created)
	}

	if out := run(t, "backup", "list"); !strings.Contains(out, created.ID) {
		t.Errorf("list output missing %s:\n%s", created.ID, out)
	}
	if out := run(t, "backup", "list", "--kind", "automatic"); strings.Contains(out, created.ID) {
		t.Errorf("kind filter should hide manual backup:\n%s", out)
	}
	if out := run(t, "backup", "verify", created.ID); !strings.Contains(out, created.ID) {
		t.Errorf("verify output missing id:\n%s", out)
	}

	run(t, "backup", "restore", created.ID, "--pre-restore-backup=false")
	run(t, "backup", "delete", created.ID)

	if out := run(t, "backup", "list"); strings.Contains(out, created.ID) {
		t.Errorf("deleted backup still listed:\n%s", out)
	}

	var buf bytes.Buffer
	if err := execute(context.Background(), []string{"backup", "restore", created.ID}, &buf); err == nil {
		t.Error("restoring a deleted backup should fail")
	}
}

func TestFlagCommands(t *testing.T) {
	setupEnv(t)

	run(t, "flag", "set", "beta", "--enabled", "--rollout", "0", "--allow", "acct_1", "--description", "beta ui")

	tests := []struct {
		identity string
		want     string
	}{
		{"acct_1", "enabled=true"},
		{"acct_9", "enabled=false"},
	}
	for _, tt := range tests {
		if out := run(t, "flag", "eval", "beta", tt.identity); !strings.Contains(out, tt.want) {
			t.Errorf("eval %s = %q, want %s", tt.identity, out, tt.want)
		}
	}

	// Only rollout changes; enabled, allow list and description are kept.
	run(t, "flag", "set", "beta", "--rollout", "100")
	if out := run(t, "flag", "eval", "beta", "acct_9"); !strings.Contains(out, "enabled=true") {
		t.Errorf("full rollout should enable every identity, got %q", out)
	}

	out := run(t, "flag", "list")
	for _, want := range []string{"beta", "100%", "acct_1", "beta ui"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	run(t, "flag", "delete", "beta")
	var buf bytes.Buffer
	if err := execute(context.Background(), []string{"flag", "delete", "beta"}, &buf); err == nil {
		t.Error("deleting a missing flag should fail")
	}
	if out := run(t, "flag", "eval", "beta", "acct_1"); !strings.Contains(out, "enabled=false") {
		t.Errorf("deleted flag should evaluate off, got %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORE_BACKEND", "floppy")

	var buf bytes.Buffer
	err := execute(context.Background(), []string{"backup", "list"}, &buf)
	if err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("BACKUP_SCHEDULE_ENABLED", "true")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, err := openApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- serve(ctx, a) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
