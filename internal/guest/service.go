// Package guest runs ephemeral guest sessions. A guest session stores all
// data in a MemoryStore that is wiped on end; nothing a guest does reaches
// durable storage, and an optional maximum duration ends the session on its
// own.
package guest

import (
	"context"
	"sync"
	"time"

	"profilevault/internal/catalog/models"
	"profilevault/internal/common"
	"profilevault/internal/logging"
	"profilevault/internal/profiles"
	"profilevault/internal/store"
)

// Options configure a guest session.
type Options struct {
	// SessionName labels the session; defaults to "Guest".
	SessionName string

	// DataTypes restricts which record kinds the session intends to hold.
	// Informational; empty means unrestricted.
	DataTypes []string

	// MaxDuration ends the session automatically when positive.
	MaxDuration time.Duration
}

// Session describes a running guest session.
type Session struct {
	Profile   *models.Profile
	Name      string
	DataTypes []string
	StartedAt time.Time
}

// Stats summarizes a finished guest session.
type Stats struct {
	Duration time.Duration
	Records  int64
	Bytes    int64
}

// Service manages at most one guest session at a time.
type Service struct {
	profiles *profiles.Manager
	logger   logging.Logger

	mu      sync.Mutex
	session *Session
	backend *store.MemoryStore
	seq     uint64 // invalidates the max-duration timer
	timer   *time.Timer
}

// NewService builds a guest service over the profile manager.
func NewService(pm *profiles.Manager, logger logging.Logger) *Service {
	return &Service{profiles: pm, logger: logger}
}

// Start begins a guest session, ending any existing one first. The session's
// data lives in a fresh MemoryStore.
func (s *Service) Start(ctx context.Context, opts Options) (*Session, error) {
	if _, err := s.End(ctx); err != nil {
		return nil, err
	}

	p := s.profiles.CreateGuestProfile(opts.SessionName)
	sess := &Session{
		Profile:   p,
		Name:      p.Name,
		DataTypes: opts.DataTypes,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.session = sess
	s.backend = store.NewMemoryStore()
	s.seq++
	if opts.MaxDuration > 0 {
		seq := s.seq
		s.timer = time.AfterFunc(opts.MaxDuration, func() {
			s.expire(seq)
		})
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "guest session started",
		"profile_id", p.ID, "max_duration", opts.MaxDuration)
	return sess, nil
}

func (s *Service) expire(seq uint64) {
	s.mu.Lock()
	stale := seq != s.seq || s.session == nil
	s.mu.Unlock()
	if stale {
		return
	}

	ctx := context.Background()
	if _, err := s.End(ctx); err != nil {
		s.logger.Error(ctx, "failed to end expired guest session", "error", err)
	}
}

// Active returns the running session, or nil.
func (s *Service) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Service) activeBackend() (*store.MemoryStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil, common.ErrNoActiveContext
	}
	return s.backend, nil
}

// Store saves a value into the guest session's memory.
func (s *Service) Store(ctx context.Context, id string, data any) error {
	b, err := s.activeBackend()
	if err != nil {
		return err
	}
	return b.Store(ctx, id, data, nil)
}

// Retrieve loads a value from the guest session's memory; (false, nil) if
// absent.
func (s *Service) Retrieve(ctx context.Context, id string, v any) (bool, error) {
	b, err := s.activeBackend()
	if err != nil {
		return false, err
	}
	return b.Retrieve(ctx, id, v)
}

// ClearData removes a single value.
func (s *Service) ClearData(ctx context.Context, id string) error {
	b, err := s.activeBackend()
	if err != nil {
		return err
	}
	return b.Delete(ctx, id)
}

// ClearAllData removes every value but keeps the session running.
func (s *Service) ClearAllData(ctx context.Context) error {
	b, err := s.activeBackend()
	if err != nil {
		return err
	}
	return b.Clear(ctx)
}

// ListIDs returns the ids stored in the guest session.
func (s *Service) ListIDs(ctx context.Context) ([]string, error) {
	b, err := s.activeBackend()
	if err != nil {
		return nil, err
	}
	return b.ListIDs(ctx)
}

// End terminates the session, wipes its memory and returns usage stats.
// Ending when no session is running returns zero stats and no error.
func (s *Service) End(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	sess := s.session
	backend := s.backend
	s.session = nil
	s.backend = nil
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if sess == nil {
		return Stats{}, nil
	}

	st, err := backend.Stats(ctx)
	if err != nil {
		st = store.Stats{}
	}
	if err := backend.Close(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Duration: time.Since(sess.StartedAt),
		Records:  st.Count,
		Bytes:    st.TotalSize,
	}
	s.logger.Info(ctx, "guest session ended",
		"profile_id", sess.Profile.ID, "records", stats.Records, "duration", stats.Duration)
	return stats, nil
}

// EndSync is the best-effort teardown variant: it never blocks on anything
// but the store mutex and swallows errors. Safe from shutdown handlers.
func (s *Service) EndSync() {
	s.mu.Lock()
	backend := s.backend
	s.session = nil
	s.backend = nil
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if backend != nil {
		_ = backend.Close()
	}
}
