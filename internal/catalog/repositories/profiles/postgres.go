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

// PostgresRepository implements Repository against PostgreSQL via the pgx
// stdlib driver.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a PostgresRepository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	query := `INSERT INTO profiles
		(id, name, salt, password_hash, created_at, session_timeout, auto_lock, keep_logged_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, hex.EncodeToString(p.Salt), hex.EncodeToString(p.PasswordHash),
		p.CreatedAt.Unix(), p.Settings.SessionTimeout.Nanoseconds(),
		boolToInt(p.Settings.AutoLock), boolToInt(p.Settings.KeepMeLoggedIn))
	if err != nil {
		if strings.Contains(err.Error(), "SQLSTATE 23505") {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	query := `SELECT ` + selectColumns + ` FROM profiles WHERE name = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Profile, error) {
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

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET last_login = $1 WHERE id = $2`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, id string, s models.ProfileSettings) error {
	query := `UPDATE profiles SET session_timeout = $1, auto_lock = $2, keep_logged_in = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query,
		s.SessionTimeout.Nanoseconds(), boolToInt(s.AutoLock), boolToInt(s.KeepMeLoggedIn), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}
