// Package storage provides abstractions for persistent session storage.
package storage

import (
	"context"
	"errors"

	"github.com/annafiu/twabillsplitter/internal/session"
)

var (
	// ErrNotFound is returned for unknown and expired sessions.
	ErrNotFound = errors.New("session not found")

	// ErrConflict is returned when a session changed since it was read.
	ErrConflict = errors.New("session was modified concurrently")
)

// Store defines the interface for session storage operations.
// Sessions expire after a period of inactivity; every successful write
// extends their lifetime.
type Store interface {
	// CreateSession persists a new session. CreatedAt and UpdatedAt are set
	// by the store.
	CreateSession(ctx context.Context, state *session.State) error

	// GetSession retrieves a live session by its ID.
	GetSession(ctx context.Context, sessionID string) (session.State, error)

	// UpdateSession replaces the stored session if its version is still
	// expectedVersion, and returns ErrConflict otherwise. UpdatedAt is set
	// by the store.
	UpdateSession(ctx context.Context, state *session.State, expectedVersion int64) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// PurgeExpired deletes every expired session and returns how many.
	PurgeExpired(ctx context.Context) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
