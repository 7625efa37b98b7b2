package config

import (
	"encoding/json"
	"os"

	"profilevault/internal/flagx"
	"profilevault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Interval fields use timex.Duration, which accepts both string values
// such as "5m" and integer nanoseconds. After unmarshalling, its fields are
// copied into the runtime Config struct.
type JsonConfig struct {
	DataDir             *string         `json:"data_dir"`
	CatalogDSN          *string         `json:"catalog_dsn"`
	SecretKey           *string         `json:"secret_key"`
	AccessTokenValidity *timex.Duration `json:"access_token_validity"`
	SessionValidity     *timex.Duration `json:"session_validity"`
	MaxActiveSessions   *int            `json:"max_active_sessions"`
	IdleTimeout         *timex.Duration `json:"idle_timeout"`
	IdleWarning         *timex.Duration `json:"idle_warning"`
	MinimizeGraceDelay  *timex.Duration `json:"minimize_grace_delay"`
	GuestMaxDuration    *timex.Duration `json:"guest_max_duration"`
	RestorePointMaxAge  *timex.Duration `json:"restore_point_max_age"`
	S3RootUser          *string         `json:"s3_root_user"`
	S3RootPassword      *string         `json:"s3_root_password"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. Fields absent from the
// file keep their current values. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DataDir != nil {
		config.DataDir = *c.DataDir
	}
	if c.CatalogDSN != nil {
		config.CatalogDSN = *c.CatalogDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.AccessTokenValidity != nil {
		config.AccessTokenValidity = c.AccessTokenValidity.Duration
	}
	if c.SessionValidity != nil {
		config.SessionValidity = c.SessionValidity.Duration
	}
	if c.MaxActiveSessions != nil {
		config.MaxActiveSessions = *c.MaxActiveSessions
	}
	if c.IdleTimeout != nil {
		config.IdleTimeout = c.IdleTimeout.Duration
	}
	if c.IdleWarning != nil {
		config.IdleWarning = c.IdleWarning.Duration
	}
	if c.MinimizeGraceDelay != nil {
		config.MinimizeGraceDelay = c.MinimizeGraceDelay.Duration
	}
	if c.GuestMaxDuration != nil {
		config.GuestMaxDuration = c.GuestMaxDuration.Duration
	}
	if c.RestorePointMaxAge != nil {
		config.RestorePointMaxAge = c.RestorePointMaxAge.Duration
	}
	if c.S3RootUser != nil {
		config.S3RootUser = *c.S3RootUser
	}
	if c.S3RootPassword != nil {
		config.S3RootPassword = *c.S3RootPassword
	}
	if c.S3Bucket != nil {
		config.S3Bucket = *c.S3Bucket
	}
	if c.S3Region != nil {
		config.S3Region = *c.S3Region
	}
	if c.S3BaseEndpoint != nil {
		config.S3BaseEndpoint = *c.S3BaseEndpoint
	}
}
