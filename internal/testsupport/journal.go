package testsupport

import (
	"testing"

	"shortsadmin/internal/config"
	"shortsadmin/internal/journal"
)

// MustOpenJournal opens the action journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
