package transport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound marks a lookup for an unknown session.
var ErrSessionNotFound = errors.New("transport: session not found")

// SessionState is the continuity state persisted per session: the
// counters and resume nonce needed to rebuild delivery order after a
// disconnect or restart.
type SessionState struct {
	SessionID   string
	ClientID    string
	LastSent    int64
	LastAcked   int64
	ResumeNonce []byte
}

// SessionStore persists session state in SQLite. The protocol core
// never touches this; it exists so the session layer can answer resume
// requests across process restarts.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (or creates) the store at path. Use ":memory:"
// for an ephemeral store.
func NewSessionStore(path string) (*SessionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id   TEXT PRIMARY KEY,
		client_id    TEXT NOT NULL,
		last_sent    INTEGER NOT NULL DEFAULT 0,
		last_acked   INTEGER NOT NULL DEFAULT 0,
		resume_nonce BLOB,
		updated_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_client ON sessions(client_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SessionStore{db: db}, nil
}

// Save upserts the session state.
func (s *SessionStore) Save(ctx context.Context, state *SessionState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, client_id, last_sent, last_acked, resume_nonce, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			client_id    = excluded.client_id,
			last_sent    = excluded.last_sent,
			last_acked   = excluded.last_acked,
			resume_nonce = excluded.resume_nonce,
			updated_at   = excluded.updated_at`,
		state.SessionID, state.ClientID, state.LastSent, state.LastAcked,
		state.ResumeNonce, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves the state for a session.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	state := &SessionState{SessionID: sessionID}
	err := s.db.QueryRowContext(ctx, `
		SELECT client_id, last_sent, last_acked, resume_nonce
		FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&state.ClientID, &state.LastSent, &state.LastAcked, &state.ResumeNonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state, nil
}

// Delete removes a session, reporting whether one existed.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}
