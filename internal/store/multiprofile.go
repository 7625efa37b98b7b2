package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"profilevault/internal/common"
	"profilevault/internal/logging"
)

// Context binds "which profile is active" to "which key to use". The key is
// owned by the store after SetActiveContext returns; callers should wipe
// their own copy.
type Context struct {
	ProfileID string
	Key       []byte
}

// MultiProfileStore routes data operations to the SecureStore of the single
// active profile context. Context switches take the write lock and data
// operations the read lock, so a switch in progress never interleaves with
// an operation on a half-torn-down old context or a not-yet-ready new one.
type MultiProfileStore struct {
	dir    string
	logger logging.Logger

	mu     sync.RWMutex
	active *SecureStore

	subMu       sync.Mutex
	subscribers []func(profileID string)
}

// NewMultiProfileStore creates a router storing profile databases under dir.
func NewMultiProfileStore(dir string, logger logging.Logger) *MultiProfileStore {
	return &MultiProfileStore{dir: dir, logger: logger}
}

// Subscribe registers a callback invoked after every context change with the
// new active profile id ("" when the context was cleared).
func (m *MultiProfileStore) Subscribe(fn func(profileID string)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *MultiProfileStore) notify(profileID string) {
	m.subMu.Lock()
	subs := make([]func(string), len(m.subscribers))
	copy(subs, m.subscribers)
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(profileID)
	}
}

// SetActiveContext tears down the previous context (closing its store and
// wiping its key) and establishes a new one. On failure the context is left
// cleared, never half-initialized.
func (m *MultiProfileStore) SetActiveContext(ctx context.Context, c Context) error {
	m.mu.Lock()

	if m.active != nil {
		if err := m.active.Close(); err != nil {
			m.logger.Warn(ctx, "failed to close previous context store", "error", err)
		}
		m.active = nil
	}

	s := NewSecureStore(c.ProfileID, m.dir)
	if err := s.Initialize(ctx, c.Key); err != nil {
		m.mu.Unlock()
		m.notify("")
		return fmt.Errorf("failed to initialize store for profile %s: %w", c.ProfileID, err)
	}
	m.active = s
	m.mu.Unlock()

	m.notify(c.ProfileID)
	return nil
}

// ClearActiveContext tears down the active context if any. Subsequent data
// operations fail with common.ErrNoActiveContext.
func (m *MultiProfileStore) ClearActiveContext(ctx context.Context) {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return
	}
	if err := m.active.Close(); err != nil {
		m.logger.Warn(ctx, "failed to close active context store", "error", err)
	}
	m.active = nil
	m.mu.Unlock()

	m.notify("")
}

// ActiveProfileID returns the active context's profile id, or "".
func (m *MultiProfileStore) ActiveProfileID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return ""
	}
	return m.active.ProfileID()
}

func (m *MultiProfileStore) withActive(fn func(s *SecureStore) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return common.ErrNoActiveContext
	}
	return fn(m.active)
}

// Store delegates to the active profile's SecureStore.
func (m *MultiProfileStore) Store(ctx context.Context, id string, data any, metadata map[string]string) error {
	return m.withActive(func(s *SecureStore) error {
		return s.Store(ctx, id, data, metadata)
	})
}

// Retrieve delegates to the active profile's SecureStore.
func (m *MultiProfileStore) Retrieve(ctx context.Context, id string, v any) (found bool, err error) {
	err = m.withActive(func(s *SecureStore) error {
		found, err = s.Retrieve(ctx, id, v)
		return err
	})
	return found, err
}

// Delete delegates to the active profile's SecureStore.
func (m *MultiProfileStore) Delete(ctx context.Context, id string) error {
	return m.withActive(func(s *SecureStore) error {
		return s.Delete(ctx, id)
	})
}

// Clear delegates to the active profile's SecureStore.
func (m *MultiProfileStore) Clear(ctx context.Context) error {
	return m.withActive(func(s *SecureStore) error {
		return s.Clear(ctx)
	})
}

// ListIDs delegates to the active profile's SecureStore.
func (m *MultiProfileStore) ListIDs(ctx context.Context) (ids []string, err error) {
	err = m.withActive(func(s *SecureStore) error {
		ids, err = s.ListIDs(ctx)
		return err
	})
	return ids, err
}

// Stats delegates to the active profile's SecureStore.
func (m *MultiProfileStore) Stats(ctx context.Context) (st Stats, err error) {
	err = m.withActive(func(s *SecureStore) error {
		st, err = s.Stats(ctx)
		return err
	})
	return st, err
}

// ExportActive re-encrypts the active profile's dataset under an export key
// derived from (password, exportSalt).
func (m *MultiProfileStore) ExportActive(ctx context.Context, password, exportSalt []byte, categories []string) (ciphertext, nonce []byte, err error) {
	err = m.withActive(func(s *SecureStore) error {
		ciphertext, nonce, err = s.ExportEncrypted(ctx, password, exportSalt, categories)
		return err
	})
	return ciphertext, nonce, err
}

// ImportActive imports an exported payload into the active profile's store.
func (m *MultiProfileStore) ImportActive(ctx context.Context, ciphertext, nonce, password, exportSalt []byte) error {
	return m.withActive(func(s *SecureStore) error {
		return s.ImportEncrypted(ctx, ciphertext, nonce, password, exportSalt)
	})
}

// DeleteProfile destroys the profile's store database. If it is the active
// profile, the context is cleared first; subsequent operations fail closed.
func (m *MultiProfileStore) DeleteProfile(ctx context.Context, profileID string) error {
	m.mu.Lock()
	cleared := false
	if m.active != nil && m.active.ProfileID() == profileID {
		if err := m.active.DeleteDatabase(); err != nil {
			m.active = nil
			m.mu.Unlock()
			m.notify("")
			return err
		}
		m.active = nil
		cleared = true
	} else {
		if err := os.Remove(StorePath(m.dir, profileID)); err != nil && !os.IsNotExist(err) {
			m.mu.Unlock()
			return fmt.Errorf("failed to delete store database: %w", err)
		}
	}
	m.mu.Unlock()

	if cleared {
		m.notify("")
	}
	return nil
}

// ExportProfileData exports a non-active profile's dataset by temporarily
// attaching the supplied data key. The key reference never enters the
// routing table and the temporary store is closed before returning.
func (m *MultiProfileStore) ExportProfileData(ctx context.Context, profileID string, dataKey, password, exportSalt []byte, categories []string) ([]byte, []byte, error) {
	s := NewSecureStore(profileID, m.dir)
	if err := s.Initialize(ctx, dataKey); err != nil {
		return nil, nil, err
	}
	defer s.Close()
	return s.ExportEncrypted(ctx, password, exportSalt, categories)
}

// ImportProfileData imports an exported payload into a non-active profile's
// store, temporarily attaching the supplied data key.
func (m *MultiProfileStore) ImportProfileData(ctx context.Context, profileID string, dataKey, ciphertext, nonce, password, exportSalt []byte) error {
	s := NewSecureStore(profileID, m.dir)
	if err := s.Initialize(ctx, dataKey); err != nil {
		return err
	}
	defer s.Close()
	return s.ImportEncrypted(ctx, ciphertext, nonce, password, exportSalt)
}

// WipeMemory closes the active store and clears the context. Used on
// logout-all and application teardown.
func (m *MultiProfileStore) WipeMemory(ctx context.Context) {
	m.ClearActiveContext(ctx)
}
