package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/chartlyhq/chartly/internal/profile"
	"github.com/chartlyhq/chartly/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database specified by its database driver name and a
// driver-specific data source name.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Open the SQLite connection with some sane defaults.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite allows a single writer at a time.
	db.SetMaxOpenConns(1)

	driver := DB{db: db, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'chat_session')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}
