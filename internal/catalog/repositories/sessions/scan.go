package sessions

import (
	"time"

	"profilevault/internal/catalog/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const selectColumns = `id, profile_id, token, created_at, expires_at, active`

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s         models.Session
		createdAt int64
		expiresAt int64
		active    int
	)
	if err := row.Scan(&s.ID, &s.ProfileID, &s.Token, &createdAt, &expiresAt, &active); err != nil {
		return nil, err
	}
	// session times are stored as unix nanoseconds so creation order is total
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	s.ExpiresAt = time.Unix(0, expiresAt).UTC()
	s.Active = active != 0
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
