package profiles

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"profilevault/internal/catalog/models"
)

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const selectColumns = `id, name, salt, password_hash, created_at, last_login,
       session_timeout, auto_lock, keep_logged_in`

// scanProfile decodes one catalogue row. Binary values are hex TEXT and
// times are unix-second BIGINT so the same schema serves sqlite and postgres.
// The session timeout is stored in nanoseconds so the settings round-trip is
// exact for any duration.
func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p            models.Profile
		saltHex      string
		hashHex      string
		createdAt    int64
		lastLogin    sql.NullInt64
		timeoutNanos int64
		autoLock     int
		keepLogged   int
	)

	err := row.Scan(&p.ID, &p.Name, &saltHex, &hashHex, &createdAt, &lastLogin,
		&timeoutNanos, &autoLock, &keepLogged)
	if err != nil {
		return nil, err
	}

	if p.Salt, err = hex.DecodeString(saltHex); err != nil {
		return nil, fmt.Errorf("corrupt salt column: %w", err)
	}
	if p.PasswordHash, err = hex.DecodeString(hashHex); err != nil {
		return nil, fmt.Errorf("corrupt password_hash column: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0).UTC()
		p.LastLogin = &t
	}
	p.Settings = models.ProfileSettings{
		SessionTimeout: time.Duration(timeoutNanos),
		AutoLock:       autoLock != 0,
		KeepMeLoggedIn: keepLogged != 0,
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
