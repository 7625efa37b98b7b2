package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"profilevault/internal/catalog/migrations"
	"profilevault/internal/catalog/repositories/profiles"
	"profilevault/internal/catalog/repositories/sessions"
	"profilevault/internal/dbx"
)

// PostgresManager vends PostgreSQL-backed catalogue repositories.
type PostgresManager struct{}

// NewPostgresManager constructs a PostgreSQL-backed Manager.
func NewPostgresManager() *PostgresManager {
	return &PostgresManager{}
}

// Profiles returns a profiles.Repository bound to the provided DBTX.
func (m *PostgresManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

// Sessions returns a sessions.Repository bound to the provided DBTX.
func (m *PostgresManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
