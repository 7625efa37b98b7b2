// Package records provides the repository for a single profile's encrypted
// records. Payload and metadata columns always hold AES-GCM ciphertext; the
// repository itself never sees plaintext.
package records

import (
	"context"
	"time"
)

// Record is one encrypted row of a profile store.
type Record struct {
	ID            string
	Payload       []byte
	NoncePayload  []byte
	Metadata      []byte
	NonceMetadata []byte
	UpdatedAt     time.Time
}

// Stats summarizes a profile store.
type Stats struct {
	Count     int64
	TotalSize int64
}

// Repository describes CRUD operations over encrypted records.
// Implementations return common.ErrNotFound for missing ids.
type Repository interface {
	// Upsert inserts a record or replaces an existing one by id.
	Upsert(ctx context.Context, r *Record) error

	// Get returns a record by id.
	Get(ctx context.Context, id string) (*Record, error)

	// GetAll returns every record in the store.
	GetAll(ctx context.Context) ([]Record, error)

	// Delete removes a record by id.
	Delete(ctx context.Context, id string) error

	// Clear removes all records.
	Clear(ctx context.Context) error

	// ListIDs returns all record ids.
	ListIDs(ctx context.Context) ([]string, error)

	// Stats returns record count and total ciphertext size.
	Stats(ctx context.Context) (Stats, error)
}
