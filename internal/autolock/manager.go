// Package autolock locks the active profile after user inactivity or window
// minimize. Timers are sequence-numbered: every activity bump invalidates
// previously armed timers, so a stale fire is a no-op rather than a spurious
// lock.
package autolock

import (
	"context"
	"sync"
	"time"

	"profilevault/internal/logging"
	"profilevault/internal/profiles"
)

// ActivityKind classifies a user-activity signal.
type ActivityKind string

const (
	ActivityPointer ActivityKind = "pointer"
	ActivityKey     ActivityKind = "key"
	ActivityScroll  ActivityKind = "scroll"
	ActivityTouch   ActivityKind = "touch"
	ActivityFocus   ActivityKind = "focus"
)

// LockState is the idle-tracking state of the active profile.
type LockState int

const (
	StateLocked LockState = iota
	StateActive
	StateIdleWarning
)

func (s LockState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateIdleWarning:
		return "idle-warning"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// EventType identifies a lock lifecycle event.
type EventType int

const (
	EventWarning EventType = iota
	EventLocked
	EventUnlocked
	EventUnlockFailed
)

// Event is delivered to every registered listener.
type Event struct {
	Type      EventType
	Remaining time.Duration // EventWarning: time left before the lock
	Err       error         // EventUnlockFailed: the unlock error
}

// Options configure the idle and minimize timers.
type Options struct {
	// IdleTimeout is the default inactivity window before locking; a
	// profile's SessionTimeout setting overrides it when set.
	IdleTimeout time.Duration

	// IdleWarning is how long before the lock the warning event fires.
	IdleWarning time.Duration

	// MinimizeGraceDelay is the delay between the window being hidden and
	// the lock.
	MinimizeGraceDelay time.Duration
}

// Manager drives the auto-lock state machine over the profile manager.
// Guest profiles never arm timers.
type Manager struct {
	profiles *profiles.Manager
	logger   logging.Logger
	opts     Options

	mu         sync.Mutex
	running    bool
	state      LockState
	seq        uint64 // invalidates idle timers
	graceSeq   uint64 // invalidates the minimize timer
	idleTimer  *time.Timer
	graceTimer *time.Timer

	lisMu     sync.Mutex
	listeners []func(Event)
}

// NewManager builds an auto-lock manager bound to the profile manager.
func NewManager(pm *profiles.Manager, logger logging.Logger, opts Options) *Manager {
	return &Manager{
		profiles: pm,
		logger:   logger,
		opts:     opts,
		state:    StateLocked,
	}
}

// AddListener registers an event callback. Callbacks run synchronously on
// the goroutine that caused the event and must not block.
func (m *Manager) AddListener(fn func(Event)) {
	m.lisMu.Lock()
	defer m.lisMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) emit(ev Event) {
	m.lisMu.Lock()
	fns := make([]func(Event), len(m.listeners))
	copy(fns, m.listeners)
	m.lisMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Start begins idle tracking. If a profile is already unlocked its timer is
// armed immediately.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	if p := m.profiles.ActiveProfile(); p != nil {
		m.HandleContextChange(p.ID)
	}
	m.logger.Debug(ctx, "auto-lock started",
		"idle_timeout", m.opts.IdleTimeout, "idle_warning", m.opts.IdleWarning)
}

// Stop cancels all timers and stops tracking. The profile stays unlocked.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.cancelTimersLocked()
}

// HandleContextChange reacts to a profile-context switch: "" means the
// context was cleared (locked), anything else is a freshly unlocked profile.
// Wire it to MultiProfileStore.Subscribe.
func (m *Manager) HandleContextChange(profileID string) {
	if profileID == "" {
		m.mu.Lock()
		already := m.state == StateLocked
		m.state = StateLocked
		m.cancelTimersLocked()
		m.mu.Unlock()
		if !already {
			m.emit(Event{Type: EventLocked})
		}
		return
	}

	m.mu.Lock()
	m.state = StateActive
	m.armIdleTimerLocked()
	m.mu.Unlock()
}

// RecordActivity resets the idle timer and refreshes the auth session. Calls
// while locked or stopped are ignored.
func (m *Manager) RecordActivity(ctx context.Context, kind ActivityKind) {
	m.mu.Lock()
	if !m.running || m.state == StateLocked {
		m.mu.Unlock()
		return
	}
	m.state = StateActive
	m.armIdleTimerLocked()
	m.mu.Unlock()

	p := m.profiles.ActiveProfile()
	if p == nil || p.IsGuest {
		return
	}
	if err := m.profiles.RefreshSession(ctx); err != nil {
		m.logger.Warn(ctx, "failed to refresh session on activity", "kind", string(kind), "error", err)
	}
}

// Lock locks the active profile and emits EventLocked exactly once per
// locked transition. Locking while already locked is a no-op.
func (m *Manager) Lock(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateLocked {
		m.mu.Unlock()
		return nil
	}
	m.state = StateLocked
	m.cancelTimersLocked()
	m.mu.Unlock()

	if err := m.profiles.LockProfile(ctx); err != nil {
		return err
	}
	m.emit(Event{Type: EventLocked})
	return nil
}

// Unlock attempts to unlock the given profile. On failure the state stays
// Locked and EventUnlockFailed carries the error.
func (m *Manager) Unlock(ctx context.Context, profileID, password string) error {
	if err := m.profiles.SwitchProfile(ctx, profileID, password); err != nil {
		m.emit(Event{Type: EventUnlockFailed, Err: err})
		return err
	}

	m.mu.Lock()
	m.state = StateActive
	m.armIdleTimerLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventUnlocked})
	return nil
}

// SetVisible tracks window visibility. Hiding the window arms a delayed
// lock; showing it again within the grace period cancels the lock.
func (m *Manager) SetVisible(ctx context.Context, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.graceSeq++
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
	if visible || !m.running || m.state == StateLocked || !m.shouldAutoLockLocked() {
		return
	}

	seq := m.graceSeq
	m.graceTimer = time.AfterFunc(m.opts.MinimizeGraceDelay, func() {
		m.mu.Lock()
		stale := seq != m.graceSeq || m.state == StateLocked
		m.mu.Unlock()
		if stale {
			return
		}
		if err := m.Lock(context.Background()); err != nil {
			m.logger.Error(ctx, "minimize lock failed", "error", err)
		}
	})
}

// State returns the current idle-tracking state.
func (m *Manager) State() LockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) cancelTimersLocked() {
	m.seq++
	m.graceSeq++
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
}

func (m *Manager) shouldAutoLockLocked() bool {
	p := m.profiles.ActiveProfile()
	return p != nil && !p.IsGuest && p.Settings.AutoLock
}

// idleTimeoutLocked returns the effective inactivity window: the profile's
// own SessionTimeout setting, or the configured default.
func (m *Manager) idleTimeoutLocked() time.Duration {
	if p := m.profiles.ActiveProfile(); p != nil && p.Settings.SessionTimeout > 0 {
		return p.Settings.SessionTimeout
	}
	return m.opts.IdleTimeout
}

func (m *Manager) armIdleTimerLocked() {
	m.seq++
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	if !m.running || !m.shouldAutoLockLocked() {
		return
	}

	timeout := m.idleTimeoutLocked()
	warning := m.opts.IdleWarning
	if warning >= timeout {
		warning = 0
	}

	seq := m.seq
	m.idleTimer = time.AfterFunc(timeout-warning, func() {
		m.idleFired(seq, warning)
	})
}

// idleFired runs when the inactivity window (minus the warning lead) has
// elapsed. A stale sequence means activity arrived in the meantime.
func (m *Manager) idleFired(seq uint64, warning time.Duration) {
	m.mu.Lock()
	if seq != m.seq || m.state == StateLocked {
		m.mu.Unlock()
		return
	}

	if warning > 0 && m.state == StateActive {
		m.state = StateIdleWarning
		m.idleTimer = time.AfterFunc(warning, func() {
			m.idleFired(seq, 0)
		})
		m.mu.Unlock()
		m.emit(Event{Type: EventWarning, Remaining: warning})
		return
	}
	m.mu.Unlock()

	if err := m.Lock(context.Background()); err != nil {
		m.logger.Error(context.Background(), "idle lock failed", "error", err)
	}
}
