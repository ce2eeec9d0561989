package mock

import (
	"context"

	"github.com/fwojciec/webintel"
)

var _ webintel.SessionStore = (*SessionStore)(nil)

// SessionStore is a mock implementation of webintel.SessionStore.
type SessionStore struct {
	LoadSessionFn  func(ctx context.Context, id string) (*webintel.Session, error)
	SaveSessionFn  func(ctx context.Context, session *webintel.Session) error
	ListSessionsFn func(ctx context.Context) ([]*webintel.Session, error)
}

func (s *SessionStore) LoadSession(ctx context.Context, id string) (*webintel.Session, error) {
	return s.LoadSessionFn(ctx, id)
}

func (s *SessionStore) SaveSession(ctx context.Context, session *webintel.Session) error {
	return s.SaveSessionFn(ctx, session)
}

func (s *SessionStore) ListSessions(ctx context.Context) ([]*webintel.Session, error) {
	return s.ListSessionsFn(ctx)
}
