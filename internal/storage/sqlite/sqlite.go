// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/annafiu/twabillsplitter/internal/session"
	"github.com/annafiu/twabillsplitter/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// DefaultTTL is the inactivity timeout used when New gets none.
const DefaultTTL = 6 * time.Hour

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path and session
// inactivity timeout. It creates the parent directories and runs migrations
// automatically.
func New(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writers would otherwise fail with SQLITE_BUSY under concurrent requests.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession persists a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, state *session.State) error {
	if state.ID == "" {
		return errors.New("session id is required")
	}
	now := s.now()
	state.CreatedAt = now
	state.UpdatedAt = now

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, version, state, created_at, updated_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)",
		state.ID, state.Version, string(data), now.UnixMilli(), now.UnixMilli(), now.Add(s.ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a live session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (session.State, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM sessions WHERE id = ? AND expires_at > ?",
		sessionID, s.now().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return session.State{}, fmt.Errorf("%w: %s", storage.ErrNotFound, sessionID)
	}
	if err != nil {
		return session.State{}, fmt.Errorf("failed to query session: %w", err)
	}

	var state session.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return session.State{}, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return state, nil
}

// UpdateSession stores state if the stored version is still expectedVersion.
func (s *SQLiteStore) UpdateSession(ctx context.Context, state *session.State, expectedVersion int64) error {
	now := s.now()
	previousUpdatedAt := state.UpdatedAt
	state.UpdatedAt = now

	data, err := json.Marshal(state)
	if err != nil {
		state.UpdatedAt = previousUpdatedAt
		return fmt.Errorf("failed to encode session: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET version = ?, state = ?, updated_at = ?, expires_at = ?
		 WHERE id = ? AND version = ? AND expires_at > ?`,
		state.Version, string(data), now.UnixMilli(), now.Add(s.ttl).UnixMilli(),
		state.ID, expectedVersion, now.UnixMilli(),
	)
	if err != nil {
		state.UpdatedAt = previousUpdatedAt
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	state.UpdatedAt = previousUpdatedAt

	// Tell a lost race apart from a missing session.
	if _, err := s.GetSession(ctx, state.ID); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s at version %d", storage.ErrConflict, state.ID, expectedVersion)
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, sessionID)
	}
	return nil
}

// PurgeExpired deletes every session past its expiry.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
