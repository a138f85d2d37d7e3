package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Migration Flow:
// 1. preMigrate: Check if DB is initialized. If not, apply LATEST.sql
// 2. Migrate (demo mode): Seed database with demo accounting data
//
// Migration Files:
// - Location: store/migration/{driver}/LATEST.sql
// - Seed files: store/seed/{driver}/*.sql, applied in lexicographic order

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// LatestSchemaFileName is the name of the latest schema file.
	// This file is used to initialize fresh installations with the current schema.
	LatestSchemaFileName = "LATEST.sql"

	// Mode constants for profile mode.
	modeProd = "prod"
	modeDemo = "demo"
)

// Migrate initializes the database schema and, in demo mode, seeds the
// accounting tables with sample data.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	if s.profile.Mode == modeDemo {
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

// preMigrate checks if the database is initialized and applies the latest schema if not.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}
	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Errorf("failed to execute SQL file %s, err %s", filePath, err)
	}
	return tx.Commit()
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getSeedBasePath() string {
	return fmt.Sprintf("seed/%s/", s.profile.Driver)
}

// seed seeds the database with demo accounting data.
// It reads all seed files from the embedded filesystem and executes them in order.
func (s *Store) seed(ctx context.Context) error {
	filenames, err := fs.Glob(seedFS, fmt.Sprintf("%s*.sql", s.getSeedBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}

	// Sort seed files by name to ensure they are applied in order.
	sort.Strings(filenames)
	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	for _, filename := range filenames {
		bytes, err := seedFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read seed file, filename=%s", filename)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "seed error: %s", filename)
		}
	}
	return tx.Commit()
}

// execute executes a SQL script within a transaction context.
// PostgreSQL doesn't support multiple statements in a single ExecContext call,
// so the script is split and each statement executed separately.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmt string) error {
	if s.profile.Driver == "postgres" {
		for i, single := range splitSQL(stmt) {
			if single == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, single); err != nil {
				return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, single)
			}
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}
	return nil
}

// splitSQL splits a multi-statement SQL script into individual statements.
// Semicolons inside single-quoted strings are preserved; comment-only lines
// are dropped. The schema and seed files contain no dollar-quoted bodies, so
// this simple scanner is sufficient.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	inSingleQuote := false

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inSingleQuote && strings.HasPrefix(trimmed, "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case ch == '\'':
				// A doubled quote inside a string is an escaped quote.
				if inSingleQuote && i+1 < len(line) && line[i+1] == '\'' {
					current.WriteString("''")
					i++
					continue
				}
				inSingleQuote = !inSingleQuote
				current.WriteByte(ch)
			case ch == ';' && !inSingleQuote:
				statements = append(statements, strings.TrimSpace(current.String()))
				current.Reset()
			default:
				current.WriteByte(ch)
			}
		}
		current.WriteString("\n")
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		statements = append(statements, trimmed)
	}
	return statements
}
