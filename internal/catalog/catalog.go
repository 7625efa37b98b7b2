// Package catalog opens the profiles catalogue database and selects the
// matching repository manager by DSN.
package catalog

import (
	"context"
	"database/sql"
	"strings"

	"profilevault/internal/catalog/repositories/repomanager"
)

// Open opens the catalogue database and runs migrations. A DSN starting
// with "postgres://" or "postgresql://" selects the pgx driver; anything
// else is treated as a sqlite database path.
func Open(ctx context.Context, dsn string) (*sql.DB, repomanager.Manager, error) {
	var (
		driver  string
		manager repomanager.Manager
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
		manager = repomanager.NewPostgresManager()
	} else {
		driver = "sqlite"
		manager = repomanager.NewSQLiteManager()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := manager.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, manager, nil
}
