package database

import (
	"context"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every pending up migration from sourceURL, e.g.
// "file://migrations", over a short-lived connection of its own. It reports
// whether anything was applied.
func RunMigrations(ctx context.Context, databaseURL, sourceURL string) (applied bool, err error) {
	migrationDB, err := OpenSQL(ctx, databaseURL)
	if err != nil {
		return false, err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return false, fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}

	// Closing m also closes migrationDB.
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return false, fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(sourceErr, dbErr)
		}
	}()

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return false, fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return false, fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return false, fmt.Errorf("database is dirty at migration version %d", version)
	}
	return upErr == nil, nil
}
