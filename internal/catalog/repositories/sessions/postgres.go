package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"profilevault/internal/catalog/models"
	"profilevault/internal/common"
	"profilevault/internal/dbx"
)

// PostgresRepository implements Repository against PostgreSQL via the pgx
// stdlib driver.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a PostgresRepository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	query := `INSERT INTO sessions (id, profile_id, token, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ProfileID, s.Token, s.CreatedAt.UnixNano(), s.ExpiresAt.UnixNano(), boolToInt(s.Active))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions WHERE token = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListActiveByProfile(ctx context.Context, profileID string, now time.Time) ([]models.Session, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions
		WHERE profile_id = $1 AND active = 1 AND expires_at > $2
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, profileID, now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = $1 WHERE token = $2 AND active = 1`
	res, err := r.db.ExecContext(ctx, query, expiresAt.UnixNano(), token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE sessions SET active = 0 WHERE token = $1 AND active = 1`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) DeleteByProfile(ctx context.Context, profileID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile_id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) DeleteOldest(ctx context.Context, profileID string, keep int) error {
	query := `DELETE FROM sessions
		WHERE profile_id = $1 AND active = 1 AND id NOT IN (
			SELECT id FROM sessions
			WHERE profile_id = $1 AND active = 1
			ORDER BY created_at DESC LIMIT $2
		)`
	_, err := r.db.ExecContext(ctx, query, profileID, keep)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
