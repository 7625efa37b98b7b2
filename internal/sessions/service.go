// Package sessions implements authentication-session lifecycle: opening a
// session on unlock, activity-driven refresh, and teardown on lock/logout.
// A session is a stored opaque token plus a short-lived JWT access token;
// the number of concurrently valid sessions per profile is capped.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"profilevault/internal/catalog/models"
	"profilevault/internal/catalog/repositories/repomanager"
	"profilevault/internal/common"
	"profilevault/internal/cryptox"
	"profilevault/internal/dbx"
)

// TokenPair bundles a short-lived access token and the stored opaque
// session token used for refresh.
type TokenPair struct {
	AccessToken  string
	SessionToken string
}

// Service manages stored auth sessions for profiles.
type Service struct {
	db                  *sql.DB
	repomanager         repomanager.Manager
	secretKey           []byte
	accessTokenValidity time.Duration
	sessionValidity     time.Duration
	maxActiveSessions   int
}

// Options configure a Service.
type Options struct {
	SecretKey           string
	AccessTokenValidity time.Duration
	SessionValidity     time.Duration
	MaxActiveSessions   int
}

// NewService constructs a session Service over the catalogue database.
func NewService(db *sql.DB, m repomanager.Manager, opts Options) *Service {
	return &Service{
		db:                  db,
		repomanager:         m,
		secretKey:           []byte(opts.SecretKey),
		accessTokenValidity: opts.AccessTokenValidity,
		sessionValidity:     opts.SessionValidity,
		maxActiveSessions:   opts.MaxActiveSessions,
	}
}

// Open creates a new session for the profile and returns its token pair.
// When the profile already holds the maximum number of active sessions, the
// oldest ones are evicted in the same transaction, so the cap is never
// exceeded.
func (s *Service) Open(ctx context.Context, profileID string) (*TokenPair, error) {
	sessionToken, err := cryptox.GenerateToken(32)
	if err != nil {
		return nil, fmt.Errorf("error generating session token: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Token:     sessionToken,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionValidity),
		Active:    true,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Sessions(tx)
		if err := repo.Create(ctx, session); err != nil {
			return err
		}
		if s.maxActiveSessions > 0 {
			return repo.DeleteOldest(ctx, profileID, s.maxActiveSessions)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("error opening session: %w", err)
	}

	access, err := GenerateAccessToken(profileID, s.secretKey, s.accessTokenValidity)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	return &TokenPair{AccessToken: access, SessionToken: sessionToken}, nil
}

// Validate checks an access token and returns the owning profile id.
func (s *Service) Validate(accessToken string) (string, error) {
	return ProfileIDFromToken(accessToken, s.secretKey)
}

// Refresh extends the stored session's expiry and mints a fresh access
// token. Expired sessions yield common.ErrSessionExpired.
func (s *Service) Refresh(ctx context.Context, sessionToken string) (*TokenPair, error) {
	repo := s.repomanager.Sessions(s.db)

	session, err := repo.FindByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}
	if !session.Active {
		return nil, common.ErrInvalidToken
	}
	if session.Expired(time.Now().UTC()) {
		return nil, common.ErrSessionExpired
	}

	if err := repo.Touch(ctx, sessionToken, time.Now().UTC().Add(s.sessionValidity)); err != nil {
		return nil, fmt.Errorf("error refreshing session: %w", err)
	}

	access, err := GenerateAccessToken(session.ProfileID, s.secretKey, s.accessTokenValidity)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	return &TokenPair{AccessToken: access, SessionToken: sessionToken}, nil
}

// CloseSession deactivates a single session. Closing an unknown or already
// inactive session is a no-op.
func (s *Service) CloseSession(ctx context.Context, sessionToken string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.Deactivate(ctx, sessionToken); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// CloseAll removes every session of a profile.
func (s *Service) CloseAll(ctx context.Context, profileID string) error {
	return s.repomanager.Sessions(s.db).DeleteByProfile(ctx, profileID)
}

// ActiveSessions lists the profile's currently valid sessions.
func (s *Service) ActiveSessions(ctx context.Context, profileID string) ([]models.Session, error) {
	return s.repomanager.Sessions(s.db).ListActiveByProfile(ctx, profileID, time.Now().UTC())
}

// PruneExpired removes sessions past expiry; returns the count removed.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.db).DeleteExpired(ctx, time.Now().UTC())
}
