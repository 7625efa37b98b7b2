// Package sessions provides the repository for stored authentication
// sessions.
package sessions

import (
	"context"
	"time"

	"profilevault/internal/catalog/models"
)

// Repository describes persistence operations for auth sessions.
// Implementations return common.ErrNotFound for missing rows.
type Repository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s *models.Session) error

	// FindByToken returns the session carrying the given opaque token.
	FindByToken(ctx context.Context, token string) (*models.Session, error)

	// ListActiveByProfile returns the profile's active, unexpired sessions,
	// oldest first.
	ListActiveByProfile(ctx context.Context, profileID string, now time.Time) ([]models.Session, error)

	// Touch extends a session's expiry (activity-driven refresh).
	Touch(ctx context.Context, token string, expiresAt time.Time) error

	// Deactivate marks a session inactive (logout/lock).
	Deactivate(ctx context.Context, token string) error

	// DeleteByProfile removes all sessions of a profile.
	DeleteByProfile(ctx context.Context, profileID string) error

	// DeleteExpired removes sessions past expiry; returns the count removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteOldest removes the oldest active sessions of a profile so that at
	// most keep remain.
	DeleteOldest(ctx context.Context, profileID string, keep int) error
}
