package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/webintel"
)

// Ensure LoggingSessionStore implements webintel.SessionStore.
var _ webintel.SessionStore = (*LoggingSessionStore)(nil)

// LoggingSessionStore wraps a SessionStore with debug logging.
type LoggingSessionStore struct {
	next   webintel.SessionStore
	logger *slog.Logger
}

// NewLoggingSessionStore creates a new LoggingSessionStore.
func NewLoggingSessionStore(next webintel.SessionStore, logger *slog.Logger) *LoggingSessionStore {
	return &LoggingSessionStore{next: next, logger: logger}
}

func (s *LoggingSessionStore) LoadSession(ctx context.Context, id string) (session *webintel.Session, err error) {
	defer func(begin time.Time) {
		var turns int
		if session != nil {
			turns = len(session.Turns)
		}
		s.logger.Debug("load session", "id", id, "turns", turns, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.LoadSession(ctx, id)
}

func (s *LoggingSessionStore) SaveSession(ctx context.Context, session *webintel.Session) (err error) {
	defer func(begin time.Time) {
		var id string
		var turns int
		if session != nil {
			id, turns = session.ID, len(session.Turns)
		}
		s.logger.Debug("save session", "id", id, "turns", turns, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.SaveSession(ctx, session)
}

func (s *LoggingSessionStore) ListSessions(ctx context.Context) ([]*webintel.Session, error) {
	return s.next.ListSessions(ctx)
}
