// Package models defines the catalogue entities: profile identities and
// their authentication sessions. Secrets never appear here — a profile row
// carries a salted password hash, never a password or a data key.
package models

import "time"

// ProfileSettings are the per-profile lock policy knobs.
type ProfileSettings struct {
	SessionTimeout time.Duration
	AutoLock       bool
	KeepMeLoggedIn bool
}

// Profile is one row of the profiles catalogue. IsGuest profiles exist only
// in memory and are never persisted.
type Profile struct {
	ID           string
	Name         string
	Salt         []byte
	PasswordHash []byte
	IsGuest      bool
	CreatedAt    time.Time
	LastLogin    *time.Time
	Settings     ProfileSettings
}
