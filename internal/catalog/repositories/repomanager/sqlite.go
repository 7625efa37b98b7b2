package repomanager

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"profilevault/internal/catalog/migrations"
	"profilevault/internal/catalog/repositories/profiles"
	"profilevault/internal/catalog/repositories/sessions"
	"profilevault/internal/dbx"
)

// SQLiteManager vends sqlite-backed catalogue repositories.
type SQLiteManager struct{}

// NewSQLiteManager constructs a sqlite-backed Manager.
func NewSQLiteManager() *SQLiteManager {
	return &SQLiteManager{}
}

// Profiles returns a profiles.Repository bound to the provided DBTX.
func (m *SQLiteManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewSQLiteRepository(db)
}

// Sessions returns a sessions.Repository bound to the provided DBTX.
func (m *SQLiteManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLiteRepository(db)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLiteManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
