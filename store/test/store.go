package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chartlyhq/chartly/internal/profile"
	"github.com/chartlyhq/chartly/store"
	"github.com/chartlyhq/chartly/store/db"
)

// NewTestingStore creates a fresh SQLite-backed store in a temp directory,
// migrated and seeded with the demo accounting data.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:   "demo",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "chartly_test.db"),
	}
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	ts := store.New(driver, p)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if err := ts.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return ts
}
