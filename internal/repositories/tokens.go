// package repositories provides SQLite persistence for client state that outlives a process.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CurrentSlot is the key of the row holding the active session token.
const CurrentSlot = "current"

// TokenRepository stores a single bearer token in the session_tokens table.
//
// It implements stores.TokenPersister.
type TokenRepository struct {
	db   *sql.DB
	slot string
}

// NewTokenRepository creates a new [TokenRepository] using the [CurrentSlot] row.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, slot: CurrentSlot}
}

// Load returns the stored token, or "" when the slot is empty.
func (r *TokenRepository) Load() (string, error) {
	var token string
	err := r.db.QueryRow(`SELECT token FROM session_tokens WHERE slot = ?`, r.slot).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query token: %w", err)
	}
	return token, nil
}

// Save writes token into the slot, replacing any previous value.
func (r *TokenRepository) Save(token string) error {
	if token == "" {
		return r.Clear()
	}

	query := `
		INSERT INTO session_tokens (slot, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, r.slot, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM session_tokens WHERE slot = ?`, r.slot); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// SavedAt returns when the slot was last written. ok is false when the slot is empty.
func (r *TokenRepository) SavedAt() (at time.Time, ok bool, err error) {
	err = r.db.QueryRow(`SELECT updated_at FROM session_tokens WHERE slot = ?`, r.slot).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query token timestamp: %w", err)
	}
	return at, true, nil
}
