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

// SQLiteRepository implements Repository using a DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, s *models.Session) error {
	query := `INSERT INTO sessions (id, profile_id, token, created_at, expires_at, active)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ProfileID, s.Token, s.CreatedAt.UnixNano(), s.ExpiresAt.UnixNano(), boolToInt(s.Active))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions WHERE token = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListActiveByProfile(ctx context.Context, profileID string, now time.Time) ([]models.Session, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions
		WHERE profile_id = ? AND active = 1 AND expires_at > ?
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

func (r *SQLiteRepository) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = ? WHERE token = ? AND active = 1`
	res, err := r.db.ExecContext(ctx, query, expiresAt.UnixNano(), token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *SQLiteRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE sessions SET active = 0 WHERE token = ? AND active = 1`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *SQLiteRepository) DeleteByProfile(ctx context.Context, profileID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile_id = ?`, profileID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteOldest(ctx context.Context, profileID string, keep int) error {
	query := `DELETE FROM sessions
		WHERE profile_id = ? AND active = 1 AND id NOT IN (
			SELECT id FROM sessions
			WHERE profile_id = ? AND active = 1
			ORDER BY created_at DESC LIMIT ?
		)`
	_, err := r.db.ExecContext(ctx, query, profileID, profileID, keep)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}
