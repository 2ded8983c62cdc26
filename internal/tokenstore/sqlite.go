package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a small key/value table in SQLite.
// SQLite stands in for the browser's localStorage: a durable, local,
// single-client store that survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed token store at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps the expiry watcher's reads from blocking a concurrent
	// refresh write.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One client per database; a handful of connections is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS credentials (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Tokens returns the stored token pair, empty strings for missing entries.
func (s *SQLiteStore) Tokens(ctx context.Context) (string, string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM credentials WHERE key IN (?, ?)`,
		KeyAccessToken, KeyRefreshToken,
	)
	if err != nil {
		return "", "", fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var access, refresh string
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return "", "", fmt.Errorf("scan token row: %w", err)
		}
		switch key {
		case KeyAccessToken:
			access = value
		case KeyRefreshToken:
			refresh = value
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", fmt.Errorf("iterate token rows: %w", err)
	}
	return access, refresh, nil
}

// SetTokens stores both tokens in a single transaction.
func (s *SQLiteStore) SetTokens(ctx context.Context, access, refresh string) error {
	return withConflictRetry(func() error {
		return s.setTokens(ctx, access, refresh)
	})
}

func (s *SQLiteStore) setTokens(ctx context.Context, access, refresh string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for key, value := range map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tokens: %w", err)
	}
	return nil
}

// SetAccessToken overwrites only the access token.
func (s *SQLiteStore) SetAccessToken(ctx context.Context, access string) error {
	return withConflictRetry(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			KeyAccessToken, access, time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert access token: %w", err)
		}
		return nil
	})
}

// Clear removes both tokens.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return withConflictRetry(func() error {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM credentials WHERE key IN (?, ?)`,
			KeyAccessToken, KeyRefreshToken,
		)
		if err != nil {
			return fmt.Errorf("clear tokens: %w", err)
		}
		return nil
	})
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
