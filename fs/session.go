package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/webintel"
)

// Ensure SessionStore implements webintel.SessionStore at compile time.
var _ webintel.SessionStore = (*SessionStore)(nil)

// SessionStore keeps each session in its own JSON file. Saves replace the
// file atomically, so concurrent processes never see a torn session.
type SessionStore struct {
	dir string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewSessionStore creates a SessionStore under <root>/sessions.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{dir: filepath.Join(root, SessionsDir), Now: time.Now}
}

// LoadSession returns the stored session or a new empty one.
// The new session is not written until SaveSession is called.
func (s *SessionStore) LoadSession(ctx context.Context, id string) (*webintel.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := webintel.ValidateSessionID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return webintel.NewSession(id, s.Now().UTC()), nil
	}
	if err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "reading session %s: %v", id, err)
	}
	return decodeSession(id, data)
}

// SaveSession writes the session, replacing any previous version.
func (s *SessionStore) SaveSession(ctx context.Context, session *webintel.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return webintel.Errorf(webintel.EINVALID, "session required")
	}
	if err := webintel.ValidateSessionID(session.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return webintel.Errorf(webintel.EINTERNAL, "encoding session %s: %v", session.ID, err)
	}
	if err := writeFileAtomic(s.path(session.ID), append(data, '\n'), 0644); err != nil {
		return webintel.Errorf(webintel.ESTORAGE, "writing session %s: %v", session.ID, err)
	}
	return nil
}

// ListSessions returns every stored session, most recently updated first.
// Unreadable files are skipped.
func (s *SessionStore) ListSessions(ctx context.Context) ([]*webintel.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []*webintel.Session{}, nil
	}
	if err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "listing sessions: %v", err)
	}

	sessions := []*webintel.Session{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		session, err := decodeSession(id, data)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *SessionStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func decodeSession(id string, data []byte) (*webintel.Session, error) {
	var session webintel.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, webintel.Errorf(webintel.ESTORAGE, "session %s is corrupt: %v", id, err)
	}
	if session.ID == "" {
		session.ID = id
	}
	if session.Turns == nil {
		session.Turns = []webintel.Turn{}
	}
	return &session, nil
}
