package records

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"profilevault/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  id TEXT PRIMARY KEY,
  payload BLOB NOT NULL,
  nonce_payload BLOB NOT NULL,
  metadata BLOB,
  nonce_metadata BLOB,
  updated_at BIGINT NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func sampleRecord(id string) *Record {
	return &Record{
		ID:            id,
		Payload:       []byte("ct-" + id),
		NoncePayload:  []byte("np-" + id),
		Metadata:      []byte("md-" + id),
		NonceMetadata: []byte("nm-" + id),
		UpdatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestUpsertInsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := sampleRecord("id1")
	require.NoError(t, r.Upsert(ctx, rec))

	got, err := r.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, rec.Payload, got.Payload)
	assert.Equal(t, rec.NoncePayload, got.NoncePayload)
	assert.Equal(t, rec.Metadata, got.Metadata)

	// overwrite under the same id
	rec2 := sampleRecord("id1")
	rec2.Payload = []byte("new-ct")
	require.NoError(t, r.Upsert(ctx, rec2))

	got, err = r.Get(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new-ct"), got.Payload)
}

func TestGetMissing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAndClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleRecord("a")))
	require.NoError(t, r.Upsert(ctx, sampleRecord("b")))

	require.NoError(t, r.Delete(ctx, "a"))
	assert.ErrorIs(t, r.Delete(ctx, "a"), common.ErrNotFound)

	require.NoError(t, r.Clear(ctx))
	ids, err := r.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListIDsAndStats(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, s)

	require.NoError(t, r.Upsert(ctx, sampleRecord("b")))
	require.NoError(t, r.Upsert(ctx, sampleRecord("a")))

	ids, err := r.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	s, err = r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Count)
	assert.Greater(t, s.TotalSize, int64(0))
}

func TestGetAll(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleRecord("a")))
	require.NoError(t, r.Upsert(ctx, sampleRecord("b")))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
