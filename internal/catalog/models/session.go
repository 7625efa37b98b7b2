package models

import "time"

// Session is a stored authentication session. The opaque Token is what the
// caller presents for refresh; the short-lived access token (JWT) is never
// persisted.
type Session struct {
	ID        string
	ProfileID string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Active    bool
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
