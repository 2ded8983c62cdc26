package tokenstore

import (
	"strings"
	"time"
)

// isSQLiteConflict reports whether the error is a SQLite concurrency
// failure (SQLITE_BUSY or "database is locked"). These can surface despite
// the busy_timeout pragma when the expiry watcher and a refresh write
// collide, and warrant one retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withConflictRetry runs fn, retrying once after a short pause if it fails
// with a SQLite concurrency error.
func withConflictRetry(fn func() error) error {
	err := fn()
	if !isSQLiteConflict(err) {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return fn()
}
