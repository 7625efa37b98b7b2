// Package app assembles the vault: catalogue database, profile store router,
// session service, profile manager, auto-lock, guest mode and backups. All
// collaborators are constructor-injected; nothing lives in package state.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"profilevault/internal/autolock"
	"profilevault/internal/backup"
	"profilevault/internal/catalog"
	"profilevault/internal/config"
	"profilevault/internal/guest"
	"profilevault/internal/logging"
	"profilevault/internal/profiles"
	"profilevault/internal/sessions"
	"profilevault/internal/store"
)

// App owns every long-lived component of the vault.
type App struct {
	Config   *config.Config
	Logger   logging.Logger
	DB       *sql.DB
	Store    *store.MultiProfileStore
	Sessions *sessions.Service
	Profiles *profiles.Manager
	AutoLock *autolock.Manager
	Guest    *guest.Service
	Backup   *backup.Service
}

// New builds and starts the application from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}

	dsn := cfg.CatalogDSN
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") && !filepath.IsAbs(dsn) {
		dsn = filepath.Join(cfg.DataDir, dsn)
	}

	db, repos, err := catalog.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening catalogue: %w", err)
	}

	st := store.NewMultiProfileStore(cfg.DataDir, logger)
	sess := sessions.NewService(db, repos, sessions.Options{
		SecretKey:           cfg.SecretKey,
		AccessTokenValidity: cfg.AccessTokenValidity,
		SessionValidity:     cfg.SessionValidity,
		MaxActiveSessions:   cfg.MaxActiveSessions,
	})
	pm := profiles.NewManager(db, repos, st, sess, logger)

	al := autolock.NewManager(pm, logger, autolock.Options{
		IdleTimeout:        cfg.IdleTimeout,
		IdleWarning:        cfg.IdleWarning,
		MinimizeGraceDelay: cfg.MinimizeGraceDelay,
	})
	st.Subscribe(al.HandleContextChange)

	var remote backup.Remote
	if cfg.S3Bucket != "" {
		r, err := backup.NewS3Remote(ctx, backup.S3Options{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			logger.Warn(ctx, "backup remote unavailable", "error", err)
		} else {
			remote = r
		}
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Store:    st,
		Sessions: sess,
		Profiles: pm,
		AutoLock: al,
		Guest:    guest.NewService(pm, logger),
		Backup:   backup.NewService(pm, st, cfg.DataDir, remote, logger),
	}

	al.Start(ctx)
	logger.Info(ctx, "vault started", "data_dir", cfg.DataDir)
	return a, nil
}

// Close tears the application down in reverse construction order: stop
// timers, end any guest session, lock and wipe, then close the catalogue.
func (a *App) Close(ctx context.Context) error {
	a.AutoLock.Stop()
	a.Guest.EndSync()
	a.Profiles.Cleanup(ctx)

	if _, err := a.Sessions.PruneExpired(ctx); err != nil {
		a.Logger.Warn(ctx, "failed to prune expired sessions on shutdown", "error", err)
	}

	a.Logger.Info(ctx, "vault stopped")
	return a.DB.Close()
}
