package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// EnsureExtension creates a Postgres extension the schema depends on (pg_trgm
// for the title index). Roles without CREATE privilege still pass when a DBA
// has already installed it.
func EnsureExtension(dsn, name string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %q", name))
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "permission denied") {
		var exists bool
		qErr := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = $1)", name).Scan(&exists)
		if qErr != nil {
			return fmt.Errorf("check %s: %w (original: %w)", name, qErr, err)
		}
		if exists {
			return nil
		}
		return fmt.Errorf("%s extension is not installed and the current database user lacks permission to create it; "+
			"ask your database admin to run: CREATE EXTENSION %s; (original: %w)", name, name, err)
	}

	return fmt.Errorf("create %s extension: %w", name, err)
}

// RunMigrations runs SQL migrations from the given directory (e.g. "file://migrations") against the DSN.
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
