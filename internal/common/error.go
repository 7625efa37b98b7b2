// Package common defines shared constants and sentinel errors used across
// the profile vault. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Auth errors. ErrUnauthorized deliberately carries a single generic
	// message so a caller cannot tell a missing profile from a wrong
	// password.
	ErrUnauthorized = errors.New("invalid name or password")

	// Crypto errors.
	ErrCrypto    = errors.New("crypto failure")
	ErrIntegrity = errors.New("integrity check failed")

	// Storage-context errors.
	ErrNoActiveContext = errors.New("no active profile context")
	ErrStoreClosed     = errors.New("store is not initialized")

	// Backup blob errors.
	ErrFormat              = errors.New("malformed backup")
	ErrIncompatibleVersion = errors.New("incompatible backup version")

	// Profile lifecycle errors.
	ErrGuestProfile = errors.New("operation not supported for guest profiles")
	ErrWeakPassword = errors.New("password too short")
	ErrInvalidName  = errors.New("invalid profile name")

	// Session lifecycle errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionExpired = errors.New("session expired")
)
