package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationDir = "sqlite/migrations"

// Migrate applies the embedded migrations that schema_migrations does not
// list yet, each in its own transaction. A nil logger operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := 0
	for _, filename := range files {
		version := strings.SplitN(filename, "_", 2)[0]

		done, err := isApplied(db, version)
		if err != nil {
			return errors.Wrapf(err, "check %s", filename)
		}
		if done {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)", "migration", filename, "version", version)
			}
			continue
		}

		if logger != nil {
			logger.Infow("Applying migration", "migration", filename, "version", version)
		}
		if err := apply(db, filename, version); err != nil {
			return err
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete", "total_migrations", len(files), "applied", applied)
	}
	return nil
}

// Versions lists the applied migration versions in order.
func Versions(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, errors.Wrap(err, "query schema_migrations")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		out = append(out, v)
	}
	return out, errors.Wrap(rows.Err(), "iterate schema_migrations")
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	// 000_create_schema_migrations.sql sorts first
	sort.Strings(files)
	return files, nil
}

// isApplied treats a missing schema_migrations table as "nothing applied",
// which is only legal for migration 000.
func isApplied(db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	if err == nil {
		return exists, nil
	}
	if version != "000" {
		return false, errors.Wrapf(err, "schema_migrations unavailable before migration %s", version)
	}
	return false, nil
}

func apply(db *sql.DB, filename, version string) error {
	stmts, err := migrations.ReadFile(path.Join(migrationDir, filename))
	if err != nil {
		return errors.Wrapf(err, "read %s", filename)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", filename)
	}
	if _, err := tx.Exec(string(stmts)); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "execute %s", filename)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "record %s", filename)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", filename)
}
