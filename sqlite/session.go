package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ webintel.SessionStore = (*SessionStore)(nil)

// SessionStore implements webintel.SessionStore using SQLite.
type SessionStore struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, Now: time.Now}
}

// LoadSession retrieves a session with its turns in order.
// Unknown IDs yield a new empty session that is not stored until saved.
func (s *SessionStore) LoadSession(ctx context.Context, id string) (*webintel.Session, error) {
	if err := webintel.ValidateSessionID(id); err != nil {
		return nil, err
	}

	session, err := s.findSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return webintel.NewSession(id, s.Now().UTC()), nil
	}
	if err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "loading session %s: %v", id, err)
	}

	turns, err := s.findTurns(ctx, id)
	if err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "loading turns of session %s: %v", id, err)
	}
	session.Turns = turns
	return session, nil
}

// SaveSession replaces the stored session and its turns in one transaction.
func (s *SessionStore) SaveSession(ctx context.Context, session *webintel.Session) error {
	if session == nil {
		return webintel.Errorf(webintel.EINVALID, "session required")
	}
	if err := webintel.ValidateSessionID(session.ID); err != nil {
		return err
	}

	if err := s.saveSession(ctx, session); err != nil {
		return webintel.Errorf(webintel.ESTORAGE, "saving session %s: %v", session.ID, err)
	}
	return nil
}

func (s *SessionStore) saveSession(ctx context.Context, session *webintel.Session) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, source_file, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_file = excluded.source_file,
			updated_at = excluded.updated_at
	`, session.ID, session.SourceFile, formatTime(session.CreatedAt), formatTime(session.UpdatedAt))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, session.ID); err != nil {
		return err
	}

	for i, turn := range session.Turns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO turns (id, session_id, position, role, text, token_estimate, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), session.ID, i, string(turn.Role), turn.Text, turn.TokenEstimate,
			formatTime(turn.Timestamp))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListSessions returns all sessions, most recently updated first.
func (s *SessionStore) ListSessions(ctx context.Context) ([]*webintel.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "listing sessions: %v", err)
	}
	defer rows.Close()

	sessions := []*webintel.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, webintel.Errorf(webintel.ESTORAGE, "listing sessions: %v", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "listing sessions: %v", err)
	}

	for _, session := range sessions {
		turns, err := s.findTurns(ctx, session.ID)
		if err != nil {
			return nil, webintel.Errorf(webintel.ESTORAGE, "loading turns of session %s: %v", session.ID, err)
		}
		session.Turns = turns
	}
	return sessions, nil
}

func (s *SessionStore) findSession(ctx context.Context, id string) (*webintel.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_file, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`, id)
	return scanSession(row)
}

func (s *SessionStore) findTurns(ctx context.Context, sessionID string) ([]webintel.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text, token_estimate, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []webintel.Turn{}
	for rows.Next() {
		var turn webintel.Turn
		var role, createdAt string
		if err := rows.Scan(&role, &turn.Text, &turn.TokenEstimate, &createdAt); err != nil {
			return nil, err
		}
		turn.Role = webintel.Role(role)
		turn.Timestamp, err = parseTime(createdAt, "turn created_at")
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*webintel.Session, error) {
	var session webintel.Session
	var createdAt, updatedAt string
	if err := row.Scan(&session.ID, &session.SourceFile, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	session.CreatedAt, err = parseTime(createdAt, "created_at")
	if err != nil {
		return nil, err
	}
	session.UpdatedAt, err = parseTime(updatedAt, "updated_at")
	if err != nil {
		return nil, err
	}
	session.Turns = []webintel.Turn{}
	return &session, nil
}
