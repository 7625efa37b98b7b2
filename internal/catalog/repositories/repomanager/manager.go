// Package repomanager vends dialect-specific repository implementations for
// the profiles catalogue and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"profilevault/internal/catalog/repositories/profiles"
	"profilevault/internal/catalog/repositories/sessions"
	"profilevault/internal/dbx"
)

type Manager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Profiles(db dbx.DBTX) profiles.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
