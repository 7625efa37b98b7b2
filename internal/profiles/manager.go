// Package profiles implements the profile lifecycle: registration, unlock
// (password verification plus data-key derivation), the locked/unlocked state
// machine, and profile deletion. It owns the single active profile and keeps
// the derived key out of reach of everything except the store context.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"profilevault/internal/catalog/models"
	"profilevault/internal/catalog/repositories/repomanager"
	"profilevault/internal/common"
	"profilevault/internal/cryptox"
	"profilevault/internal/logging"
	"profilevault/internal/sessions"
	"profilevault/internal/store"
)

// MinPasswordLen is the minimum accepted password length in bytes.
const MinPasswordLen = 8

const guestIDPrefix = "guest-"

// State is the manager's lifecycle state.
type State int

const (
	StateLocked State = iota
	StateUnlocking
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocking:
		return "unlocking"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Manager coordinates profile identities (catalogue rows), the active store
// context and the auth session of the unlocked profile.
type Manager struct {
	db       *sql.DB
	repos    repomanager.Manager
	store    *store.MultiProfileStore
	sessions *sessions.Service
	logger   logging.Logger

	mu      sync.Mutex
	state   State
	session *sessions.TokenPair
	// active is an atomic snapshot so store-context subscribers can read
	// the unlocked profile without taking mu (a switch in progress holds it).
	active atomic.Pointer[models.Profile]
	// generation increments on every switch or lock; an in-flight unlock
	// that observes a newer generation aborts without touching the context.
	generation uint64
}

// NewManager wires a Manager over the catalogue database, the profile store
// router and the session service.
func NewManager(db *sql.DB, repos repomanager.Manager, st *store.MultiProfileStore, sess *sessions.Service, logger logging.Logger) *Manager {
	return &Manager{
		db:       db,
		repos:    repos,
		store:    st,
		sessions: sess,
		logger:   logger,
		state:    StateLocked,
	}
}

// IsGuestID reports whether id denotes an unpersisted guest profile.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, guestIDPrefix)
}

// CreateProfile registers a new profile. The password is hashed for
// verification only; no store is created and nothing is unlocked. A duplicate
// name yields common.ErrAlreadyExists.
func (m *Manager) CreateProfile(ctx context.Context, name, password string) (*models.Profile, error) {
	if name == "" {
		return nil, common.ErrInvalidName
	}
	if len(password) < MinPasswordLen {
		return nil, common.ErrWeakPassword
	}

	salt := cryptox.GenerateSalt()
	p := &models.Profile{
		ID:           uuid.NewString(),
		Name:         name,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt),
		CreatedAt:    time.Now().UTC(),
		Settings: models.ProfileSettings{
			AutoLock: true,
		},
	}

	if err := m.repos.Profiles(m.db).Create(ctx, p); err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "profile created", "profile_id", p.ID, "name", p.Name)
	return p, nil
}

// CreateGuestProfile returns an ephemeral guest identity. It is never written
// to the catalogue and has no password or data key.
func (m *Manager) CreateGuestProfile(name string) *models.Profile {
	if name == "" {
		name = "Guest"
	}
	return &models.Profile{
		ID:        guestIDPrefix + uuid.NewString(),
		Name:      name,
		IsGuest:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// SwitchProfile unlocks the profile with the given id. Any lookup or
// verification failure yields common.ErrUnauthorized without distinguishing
// the cause; a failed switch leaves the previously unlocked profile (if any)
// untouched. A concurrent newer switch supersedes this one; the superseded
// call returns nil having changed nothing.
func (m *Manager) SwitchProfile(ctx context.Context, id, password string) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.state = StateUnlocking
	m.mu.Unlock()

	p, err := m.repos.Profiles(m.db).GetByID(ctx, id)
	if err != nil {
		m.abort(gen)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized
		}
		return fmt.Errorf("error loading profile: %w", err)
	}
	return m.unlock(ctx, gen, p, password)
}

// SwitchProfileByName is SwitchProfile keyed by the login name.
func (m *Manager) SwitchProfileByName(ctx context.Context, name, password string) error {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.state = StateUnlocking
	m.mu.Unlock()

	p, err := m.repos.Profiles(m.db).GetByName(ctx, name)
	if err != nil {
		m.abort(gen)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized
		}
		return fmt.Errorf("error loading profile: %w", err)
	}
	return m.unlock(ctx, gen, p, password)
}

func (m *Manager) unlock(ctx context.Context, gen uint64, p *models.Profile, password string) error {
	if !cryptox.VerifyPassword([]byte(password), p.Salt, p.PasswordHash) {
		m.abort(gen)
		return common.ErrUnauthorized
	}

	// Derivation is slow on purpose; done outside the lock.
	key := cryptox.DeriveDataKey([]byte(password), p.Salt)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		common.WipeByteArray(key)
		m.logger.Debug(ctx, "profile switch superseded", "profile_id", p.ID)
		return nil
	}

	// Publish the snapshot before the context change so subscribers see it.
	m.active.Store(p)

	if err := m.store.SetActiveContext(ctx, store.Context{ProfileID: p.ID, Key: key}); err != nil {
		m.active.Store(nil)
		m.state = StateLocked
		m.session = nil
		return fmt.Errorf("error activating profile store: %w", err)
	}

	pair, err := m.sessions.Open(ctx, p.ID)
	if err != nil {
		m.active.Store(nil)
		m.store.ClearActiveContext(ctx)
		m.state = StateLocked
		m.session = nil
		return fmt.Errorf("error opening session: %w", err)
	}

	now := time.Now().UTC()
	if err := m.repos.Profiles(m.db).UpdateLastLogin(ctx, p.ID, now); err != nil {
		m.logger.Warn(ctx, "failed to record last login", "profile_id", p.ID, "error", err)
	} else {
		p.LastLogin = &now
	}

	m.session = pair
	m.state = StateUnlocked
	m.logger.Info(ctx, "profile unlocked", "profile_id", p.ID)
	return nil
}

// abort rolls back a failed switch. When a context from an earlier unlock is
// still resident the manager returns to StateUnlocked over that context; only
// a manager with no active profile goes back to StateLocked.
func (m *Manager) abort(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state != StateUnlocking {
		return
	}
	if m.active.Load() != nil {
		m.state = StateUnlocked
	} else {
		m.state = StateLocked
	}
}

// LockProfile closes the active session, clears the store context and wipes
// the resident key. Locking an already locked manager is a no-op.
func (m *Manager) LockProfile(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	pair := m.session
	wasUnlocked := m.state != StateLocked
	profileID := ""
	if p := m.active.Load(); p != nil {
		profileID = p.ID
	}
	m.active.Store(nil)
	m.session = nil
	m.state = StateLocked
	m.mu.Unlock()

	if pair != nil {
		if err := m.sessions.CloseSession(ctx, pair.SessionToken); err != nil {
			m.logger.Warn(ctx, "failed to close session on lock", "error", err)
		}
	}
	m.store.ClearActiveContext(ctx)

	if wasUnlocked {
		m.logger.Info(ctx, "profile locked", "profile_id", profileID)
	}
	return nil
}

// DeleteProfile removes a profile entirely: its sessions, its store database
// and finally its catalogue row, in that order so a crash never leaves
// durable data behind an already deleted identity. Guest ids are a no-op.
// The active profile is locked first.
func (m *Manager) DeleteProfile(ctx context.Context, id string) error {
	if IsGuestID(id) {
		m.logger.Debug(ctx, "delete of guest profile ignored", "profile_id", id)
		return nil
	}

	p := m.active.Load()
	if p != nil && p.ID == id {
		if err := m.LockProfile(ctx); err != nil {
			return err
		}
	}

	if _, err := m.repos.Profiles(m.db).GetByID(ctx, id); err != nil {
		return err
	}

	if err := m.sessions.CloseAll(ctx, id); err != nil {
		return fmt.Errorf("error deleting sessions: %w", err)
	}
	if err := m.store.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("error deleting profile store: %w", err)
	}
	if err := m.repos.Profiles(m.db).Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting profile row: %w", err)
	}

	m.logger.Info(ctx, "profile deleted", "profile_id", id)
	return nil
}

// List returns all registered profiles.
func (m *Manager) List(ctx context.Context) ([]models.Profile, error) {
	return m.repos.Profiles(m.db).List(ctx)
}

// UpdateSettings replaces the lock policy settings of a profile.
func (m *Manager) UpdateSettings(ctx context.Context, id string, s models.ProfileSettings) error {
	if IsGuestID(id) {
		return common.ErrGuestProfile
	}
	if err := m.repos.Profiles(m.db).UpdateSettings(ctx, id, s); err != nil {
		return err
	}
	if p := m.active.Load(); p != nil && p.ID == id {
		p.Settings = s
	}
	return nil
}

// Cleanup locks the active profile and wipes store memory. Called on
// application teardown.
func (m *Manager) Cleanup(ctx context.Context) {
	if err := m.LockProfile(ctx); err != nil {
		m.logger.Warn(ctx, "failed to lock on cleanup", "error", err)
	}
	m.store.WipeMemory(ctx)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveProfile returns the unlocked profile, or nil when locked.
func (m *Manager) ActiveProfile() *models.Profile {
	return m.active.Load()
}

// ActiveSession returns the token pair of the unlocked profile, or nil.
func (m *Manager) ActiveSession() *sessions.TokenPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// RefreshSession extends the active session on user activity and swaps in
// the fresh access token. A no-op when locked.
func (m *Manager) RefreshSession(ctx context.Context) error {
	m.mu.Lock()
	pair := m.session
	m.mu.Unlock()
	if pair == nil {
		return nil
	}

	refreshed, err := m.sessions.Refresh(ctx, pair.SessionToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.session != nil && m.session.SessionToken == refreshed.SessionToken {
		m.session = refreshed
	}
	m.mu.Unlock()
	return nil
}
