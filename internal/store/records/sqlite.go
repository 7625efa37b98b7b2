package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// Upsert inserts a record or replaces an existing one by id.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) error {
	query := `INSERT INTO records (id, payload, nonce_payload, metadata, nonce_metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload,
			nonce_payload = excluded.nonce_payload,
			metadata = excluded.metadata,
			nonce_metadata = excluded.nonce_metadata,
			updated_at = excluded.updated_at`

	err := dbx.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query,
			rec.ID, rec.Payload, rec.NoncePayload, rec.Metadata, rec.NonceMetadata, rec.UpdatedAt.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	query := `SELECT id, payload, nonce_payload, metadata, nonce_metadata, updated_at
		FROM records WHERE id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]Record, error) {
	query := `SELECT id, payload, nonce_payload, metadata, nonce_metadata, updated_at FROM records`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	query := `SELECT count(*), coalesce(sum(length(payload) + coalesce(length(metadata), 0)), 0) FROM records`
	var s Stats
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.Count, &s.TotalSize); err != nil {
		return Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		updatedAt int64
	)
	err := row.Scan(&rec.ID, &rec.Payload, &rec.NoncePayload, &rec.Metadata, &rec.NonceMetadata, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &rec, nil
}
