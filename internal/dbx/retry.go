package dbx

import (
	"context"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	retryBase  = 50 * time.Millisecond
	maxRetries = 4
)

// IsTransient reports whether err looks like a transient storage failure
// worth retrying: sqlite busy/locked contention or a postgres serialization
// failure / deadlock (SQLSTATE 40001/40P01).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"database is locked",
		"database table is locked",
		"SQLITE_BUSY",
		"SQLSTATE 40001",
		"SQLSTATE 40P01",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WithRetry runs fn, retrying with fibonacci backoff while it returns a
// transient storage error. Auth and integrity failures are never transient
// and surface immediately; a persistently failing operation surfaces its
// last error after the retry budget is exhausted.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
