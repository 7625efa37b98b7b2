// Package profiles provides the repository for the profiles catalogue.
package profiles

import (
	"context"
	"time"

	"profilevault/internal/catalog/models"
)

// Repository describes persistence operations for profile identities.
// Implementations return common.ErrNotFound for missing rows and
// common.ErrAlreadyExists for duplicate names.
type Repository interface {
	// Create inserts a new profile row.
	Create(ctx context.Context, p *models.Profile) error

	// GetByID returns a profile by its identifier.
	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// GetByName returns a profile by its login identifier.
	GetByName(ctx context.Context, name string) (*models.Profile, error)

	// List returns all profiles ordered by creation time.
	List(ctx context.Context) ([]models.Profile, error)

	// UpdateLastLogin records a successful unlock.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdateSettings replaces the profile's lock policy settings.
	UpdateSettings(ctx context.Context, id string, s models.ProfileSettings) error

	// Delete removes the profile row.
	Delete(ctx context.Context, id string) error
}
