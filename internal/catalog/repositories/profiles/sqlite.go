package profiles

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
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

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `INSERT INTO profiles
		(id, name, salt, password_hash, created_at, session_timeout, auto_lock, keep_logged_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, hex.EncodeToString(p.Salt), hex.EncodeToString(p.PasswordHash),
		p.CreatedAt.Unix(), p.Settings.SessionTimeout.Nanoseconds(),
		boolToInt(p.Settings.AutoLock), boolToInt(p.Settings.KeepMeLoggedIn))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles WHERE id = ?`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles WHERE name = ?`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE profiles SET last_login = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *SQLiteRepository) UpdateSettings(ctx context.Context, id string, s models.ProfileSettings) error {
	query := `UPDATE profiles SET session_timeout = ?, auto_lock = ?, keep_logged_in = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.SessionTimeout.Nanoseconds(), boolToInt(s.AutoLock), boolToInt(s.KeepMeLoggedIn), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
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
