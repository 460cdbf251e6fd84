package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shortsadmin/internal/journal"
	"shortsadmin/internal/testsupport"
)

func TestOpenCreatesJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if store.Path() != cfg.JournalPath() {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if _, err := os.Stat(cfg.JournalPath()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	// Reopening an initialized journal must pass the version check.
	_ = store.Close()
	again, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestAppendFillsIdentityAndListIsNewestFirst(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	actions := []string{"credits.adjust", "users.deactivate", "episodes.delete"}
	for i, action := range actions {
		entry, err := store.Append(ctx, journal.Entry{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Actor:     "ops@example.com",
			Action:    action,
			Target:    "u-1",
			Outcome:   journal.OutcomeOK,
		})
		if err != nil {
			t.Fatalf("Append %s: %v", action, err)
		}
		if entry.ID == "" {
			t.Fatal("expected generated id")
		}
	}

	entries, err := store.List(ctx, journal.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "episodes.delete" || entries[1].Action != "users.deactivate" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Action, entries[1].Action)
	}
	if !entries[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected timestamp %s", entries[0].CreatedAt)
	}
}

func TestListFilters(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()
	records := []journal.Entry{
		{Action: "credits.adjust", Target: "u-1", Outcome: journal.OutcomeOK},
		{Action: "credits.adjust", Target: "u-2", Outcome: journal.OutcomeError, Detail: "HTTP 400"},
		{Action: "episodes.delete", Target: "e-1", Outcome: journal.OutcomePartial},
	}
	for _, record := range records {
		if _, err := store.Append(ctx, record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	tests := []struct {
		name string
		opts journal.ListOptions
		want int
	}{
		{"all", journal.ListOptions{}, 3},
		{"by action", journal.ListOptions{Action: "credits.adjust"}, 2},
		{"by target", journal.ListOptions{Target: "e-1"}, 1},
		{"action and target", journal.ListOptions{Action: "credits.adjust", Target: "u-2"}, 1},
		{"no match", journal.ListOptions{Action: "assets.upload"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := store.List(ctx, tc.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != tc.want {
				t.Fatalf("expected %d entries, got %d", tc.want, len(entries))
			}
		})
	}
}

func TestAppendValidatesEntry(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Append(ctx, journal.Entry{Outcome: journal.OutcomeOK}); err == nil {
		t.Fatal("expected error for missing action")
	}
	if _, err := store.Append(ctx, journal.Entry{Action: "x", Outcome: "maybe"}); err == nil {
		t.Fatal("expected error for unknown outcome")
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Now().UTC()
	for _, age := range []time.Duration{48 * time.Hour, 72 * time.Hour, time.Minute} {
		if _, err := store.Append(ctx, journal.Entry{Action: "users.activate", Outcome: journal.OutcomeOK, CreatedAt: now.Add(-age)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	removed, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	entries, err := store.List(ctx, journal.ListOptions{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d (%v)", len(entries), err)
	}
}

func TestOpenRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("rewrite version: %v", err)
	}
	_ = db.Close()

	if _, err := journal.OpenPath(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
