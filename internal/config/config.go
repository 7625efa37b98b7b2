// Package config handles configuration for the profile vault, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the vault core.
//
// Fields:
//   - DataDir: directory for per-profile store databases and restore points.
//   - CatalogDSN: profiles/sessions catalogue database. A "postgres://" DSN
//     selects the pgx driver; anything else is treated as a sqlite path.
//   - SecretKey: HMAC secret for signing access tokens (HS256). Do not use
//     the development default in production.
//   - AccessTokenValidity / SessionValidity: token and session lifetimes.
//   - MaxActiveSessions: cap on concurrently valid sessions per profile.
//   - IdleTimeout / IdleWarning: auto-lock threshold and the warning window
//     emitted before it fires.
//   - MinimizeGraceDelay: delay before locking after the window is hidden.
//   - GuestMaxDuration: default lifetime cap for guest sessions (0 = none).
//   - RestorePointMaxAge: restore points older than this are garbage-collected.
//   - S3RootUser .. S3BaseEndpoint: settings for the S3-compatible backup
//     remote. An empty bucket disables the remote.
type Config struct {
	DataDir             string
	CatalogDSN          string
	SecretKey           string
	AccessTokenValidity time.Duration
	SessionValidity     time.Duration
	MaxActiveSessions   int
	IdleTimeout         time.Duration
	IdleWarning         time.Duration
	MinimizeGraceDelay  time.Duration
	GuestMaxDuration    time.Duration
	RestorePointMaxAge  time.Duration
	S3RootUser          string
	S3RootPassword      string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DataDir = "./vaultdata"
	c.CatalogDSN = "catalog.db"
	c.SecretKey = "secretKey"
	c.AccessTokenValidity = 15 * time.Minute
	c.SessionValidity = 12 * time.Hour
	c.MaxActiveSessions = 3
	c.IdleTimeout = 5 * time.Minute
	c.IdleWarning = 30 * time.Second
	c.MinimizeGraceDelay = 30 * time.Second
	c.GuestMaxDuration = 0
	c.RestorePointMaxAge = 7 * 24 * time.Hour
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
