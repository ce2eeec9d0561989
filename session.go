package webintel

import (
	"context"
	"regexp"
	"time"
)

// Role identifies who produced a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are immutable once appended.
type Turn struct {
	Role          Role      `json:"role"`
	Text          string    `json:"text"`
	TokenEstimate int       `json:"token_estimate"`
	Timestamp     time.Time `json:"timestamp"`
}

// Session is a persisted multi-turn conversation bound to one source file.
// Turns are append-only and kept in chronological order.
type Session struct {
	ID         string    `json:"id"`
	SourceFile string    `json:"source_file,omitempty"`
	Turns      []Turn    `json:"turns"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSession returns an empty, unbound session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Turns:     []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Bind ties the session to a source file. Binding an unbound session always
// succeeds; rebinding to a different source returns ECONFLICT because
// earlier turns refer to the original content.
func (s *Session) Bind(sourceFile string) error {
	if sourceFile == "" {
		return Errorf(EINVALID, "source file required")
	}
	if s.SourceFile == "" {
		s.SourceFile = sourceFile
		return nil
	}
	if s.SourceFile != sourceFile {
		return Errorf(ECONFLICT, "session %q is bound to %s, not %s; start a new session to ask about a different source",
			s.ID, s.SourceFile, sourceFile)
	}
	return nil
}

// AppendTurn adds a turn to the end of the conversation.
func (s *Session) AppendTurn(turn Turn) error {
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return Errorf(EINVALID, "invalid role %q", turn.Role)
	}
	if turn.Text == "" {
		return Errorf(EINVALID, "turn text required")
	}
	s.Turns = append(s.Turns, turn)
	if turn.Timestamp.After(s.UpdatedAt) {
		s.UpdatedAt = turn.Timestamp
	}
	return nil
}

// History returns a copy of the turns in insertion order.
func (s *Session) History() []Turn {
	if s == nil {
		return nil
	}
	history := make([]Turn, len(s.Turns))
	copy(history, s.Turns)
	return history
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateSessionID rejects ids that are empty or unsafe to use as file names.
func ValidateSessionID(id string) error {
	if id == "" {
		return Errorf(EINVALID, "session ID required")
	}
	if len(id) > 128 || !sessionIDPattern.MatchString(id) {
		return Errorf(EINVALID, "invalid session ID %q: use letters, digits, '.', '_' or '-'", id)
	}
	return nil
}

// SessionStore persists conversation sessions keyed by ID.
type SessionStore interface {
	// LoadSession returns the stored session, or a new empty session
	// if none exists with the given ID.
	LoadSession(ctx context.Context, id string) (*Session, error)

	// SaveSession replaces the stored session atomically.
	SaveSession(ctx context.Context, session *Session) error

	// ListSessions returns all stored sessions, most recently updated first.
	ListSessions(ctx context.Context) ([]*Session, error)
}
