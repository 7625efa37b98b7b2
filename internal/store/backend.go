// Package store implements profile-scoped data storage: the encrypted
// durable SecureStore, the ephemeral in-memory MemoryStore used by guest
// sessions, and the MultiProfileStore router that binds data operations to
// the single active profile context.
package store

import "context"

// Stats summarizes a backend's contents.
type Stats struct {
	Count     int64
	TotalSize int64
}

// MetadataCategoryKey is the metadata key used to group records into backup
// categories.
const MetadataCategoryKey = "category"

// Backend is the storage variant a profile context operates on. Exactly two
// implementations exist: *SecureStore (encrypted, durable) and *MemoryStore
// (plaintext, ephemeral, guest-only). Callers that must distinguish them
// type-switch on the concrete type or check Persistent().
type Backend interface {
	// Store serializes data, encrypts it when the backend is persistent, and
	// saves it under id, overwriting any existing value.
	Store(ctx context.Context, id string, data any, metadata map[string]string) error

	// Retrieve loads the value stored under id into v. It returns
	// (false, nil) when the id is absent and common.ErrIntegrity when stored
	// ciphertext fails authentication.
	Retrieve(ctx context.Context, id string, v any) (bool, error)

	// Delete removes the value stored under id.
	Delete(ctx context.Context, id string) error

	// Clear removes all values.
	Clear(ctx context.Context) error

	// ListIDs returns all stored ids.
	ListIDs(ctx context.Context) ([]string, error)

	// Stats returns item count and stored size.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources. Idempotent.
	Close() error

	// Persistent reports whether the backend writes to durable storage.
	Persistent() bool
}
