package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"profilevault/internal/common"
	"profilevault/internal/cryptox"
	"profilevault/internal/store/migrations"
	"profilevault/internal/store/records"
)

// SecureStore is a single profile's encrypted key-value store, backed by one
// sqlite database file per profile. Every record on disk is ciphertext under
// the profile's data key; no code path writes plaintext profile data to
// durable storage.
type SecureStore struct {
	profileID string
	path      string

	mu   sync.Mutex
	db   *sql.DB
	key  []byte
	repo records.Repository
}

// StorePath returns the database file path for a profile id inside dir.
func StorePath(dir, profileID string) string {
	return filepath.Join(dir, "profiles", profileID+".db")
}

// NewSecureStore creates an uninitialized store for profileID under dir.
// All operations fail with common.ErrStoreClosed until Initialize is called
// with a valid key.
func NewSecureStore(profileID, dir string) *SecureStore {
	return &SecureStore{profileID: profileID, path: StorePath(dir, profileID)}
}

// ProfileID returns the owning profile id.
func (s *SecureStore) ProfileID() string { return s.profileID }

// Persistent reports that this backend writes to durable storage.
func (s *SecureStore) Persistent() bool { return true }

// Initialize opens the database file, applies migrations, and takes a
// private copy of key. The caller keeps ownership of its own key slice.
func (s *SecureStore) Initialize(ctx context.Context, key []byte) error {
	if len(key) != cryptox.KeySize {
		return fmt.Errorf("%w: bad key length %d", common.ErrCrypto, len(key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("store migration failed: %w", err)
	}

	s.db = db
	s.repo = records.NewSQLiteRepository(db)
	s.key = make([]byte, len(key))
	copy(s.key, key)
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// ready returns the repository and a copy of the data key. The copy keeps a
// caller that is mid-operation working even if Close wipes s.key concurrently.
func (s *SecureStore) ready() (records.Repository, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil || s.key == nil {
		return nil, nil, common.ErrStoreClosed
	}
	key := make([]byte, len(s.key))
	copy(key, s.key)
	return s.repo, key, nil
}

// Store serializes data, encrypts it with the profile key, and persists it
// under id, overwriting any existing record.
func (s *SecureStore) Store(ctx context.Context, id string, data any, metadata map[string]string) error {
	repo, key, err := s.ready()
	if err != nil {
		return err
	}

	payload, noncePayload, err := cryptox.EncryptEntry(data, key)
	if err != nil {
		return err
	}

	rec := &records.Record{
		ID:           id,
		Payload:      payload,
		NoncePayload: noncePayload,
		UpdatedAt:    time.Now().UTC(),
	}
	if len(metadata) > 0 {
		rec.Metadata, rec.NonceMetadata, err = cryptox.EncryptEntry(metadata, key)
		if err != nil {
			return err
		}
	}
	return repo.Upsert(ctx, rec)
}

// Retrieve decrypts and deserializes the record stored under id into v.
// Absent ids yield (false, nil); a record that fails authentication (wrong
// key or tampered data) yields common.ErrIntegrity.
func (s *SecureStore) Retrieve(ctx context.Context, id string, v any) (bool, error) {
	repo, key, err := s.ready()
	if err != nil {
		return false, err
	}

	rec, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := cryptox.DecryptEntry(rec.Payload, rec.NoncePayload, key, v); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the record stored under id.
func (s *SecureStore) Delete(ctx context.Context, id string) error {
	repo, _, err := s.ready()
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

// Clear removes all records.
func (s *SecureStore) Clear(ctx context.Context) error {
	repo, _, err := s.ready()
	if err != nil {
		return err
	}
	return repo.Clear(ctx)
}

// ListIDs returns all record ids.
func (s *SecureStore) ListIDs(ctx context.Context) ([]string, error) {
	repo, _, err := s.ready()
	if err != nil {
		return nil, err
	}
	return repo.ListIDs(ctx)
}

// Stats returns record count and total stored ciphertext size.
func (s *SecureStore) Stats(ctx context.Context) (Stats, error) {
	repo, _, err := s.ready()
	if err != nil {
		return Stats{}, err
	}
	rs, err := repo.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Count: rs.Count, TotalSize: rs.TotalSize}, nil
}

// ExportedRecord is one decrypted record inside a portable dataset.
type ExportedRecord struct {
	Data     json.RawMessage   `json:"data"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Dataset is the plaintext form of a profile's records, keyed by record id.
// It exists only transiently during export/import.
type Dataset map[string]ExportedRecord

// ExportDataset decrypts the profile's records with the live key. When
// categories is non-empty, only records whose metadata category matches are
// included.
func (s *SecureStore) ExportDataset(ctx context.Context, categories []string) (Dataset, error) {
	repo, key, err := s.ready()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ds := make(Dataset, len(all))
	for _, rec := range all {
		var data json.RawMessage
		if err := cryptox.DecryptEntry(rec.Payload, rec.NoncePayload, key, &data); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		var metadata map[string]string
		if len(rec.Metadata) > 0 {
			if err := cryptox.DecryptEntry(rec.Metadata, rec.NonceMetadata, key, &metadata); err != nil {
				return nil, fmt.Errorf("record %s metadata: %w", rec.ID, err)
			}
		}
		if len(wanted) > 0 {
			if _, ok := wanted[metadata[MetadataCategoryKey]]; !ok {
				continue
			}
		}
		ds[rec.ID] = ExportedRecord{Data: data, Metadata: metadata}
	}
	return ds, nil
}

// ImportDataset encrypts each dataset record under the live key and upserts
// it, overwriting records with matching ids.
func (s *SecureStore) ImportDataset(ctx context.Context, ds Dataset) error {
	if _, _, err := s.ready(); err != nil {
		return err
	}
	for id, rec := range ds {
		if err := s.Store(ctx, id, rec.Data, rec.Metadata); err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
	}
	return nil
}

// ExportEncrypted re-encrypts the dataset under a key derived from
// (password, exportSalt), which is distinct from the live profile key,
// producing a portable payload.
func (s *SecureStore) ExportEncrypted(ctx context.Context, password, exportSalt []byte, categories []string) (ciphertext, nonce []byte, err error) {
	ds, err := s.ExportDataset(ctx, categories)
	if err != nil {
		return nil, nil, err
	}

	exportKey := cryptox.DeriveDataKey(password, exportSalt)
	defer common.WipeByteArray(exportKey)

	return cryptox.EncryptEntry(ds, exportKey)
}

// ImportEncrypted is the inverse of ExportEncrypted. A wrong password
// surfaces as common.ErrIntegrity from decryption; malformed plaintext as
// common.ErrFormat.
func (s *SecureStore) ImportEncrypted(ctx context.Context, ciphertext, nonce, password, exportSalt []byte) error {
	if _, _, err := s.ready(); err != nil {
		return err
	}

	exportKey := cryptox.DeriveDataKey(password, exportSalt)
	defer common.WipeByteArray(exportKey)

	var ds Dataset
	if err := cryptox.DecryptEntry(ciphertext, nonce, exportKey, &ds); err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrFormat, err)
	}
	return s.ImportDataset(ctx, ds)
}

// Close releases the in-memory key and the database handle. It is
// idempotent and safe to call on an uninitialized store.
func (s *SecureStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	common.WipeByteArray(s.key)
	s.key = nil
	s.repo = nil

	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// DeleteDatabase irreversibly destroys all durable state for this profile.
func (s *SecureStore) DeleteDatabase() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete store database: %w", err)
	}
	return nil
}
