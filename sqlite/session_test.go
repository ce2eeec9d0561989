package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func newStore(t *testing.T) *sqlite.SessionStore {
	t.Helper()
	store := sqlite.NewSessionStore(setupTestDB(t))
	store.Now = func() time.Time { return testNow }
	return store
}

func TestSessionStore_LoadSession(t *testing.T) {
	t.Parallel()

	t.Run("returns empty session for unknown ID", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)

		session, err := store.LoadSession(context.Background(), "new-one")

		require.NoError(t, err)
		assert.Equal(t, "new-one", session.ID)
		assert.Empty(t, session.Turns)
		assert.Equal(t, testNow, session.CreatedAt)

		sessions, err := store.ListSessions(context.Background())
		require.NoError(t, err)
		assert.Empty(t, sessions, "loading must not create the session")
	})

	t.Run("rejects invalid ID", func(t *testing.T) {
		t.Parallel()

		_, err := newStore(t).LoadSession(context.Background(), "../x")

		assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))
	})
}

func TestSessionStore_SaveSession(t *testing.T) {
	t.Parallel()

	t.Run("round trips turns in order", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		ctx := context.Background()
		session := webintel.NewSession("s1", testNow)
		require.NoError(t, session.Bind("/data/report.md"))
		for i, text := range []string{"first", "second", "third"} {
			role := webintel.RoleUser
			if i%2 == 1 {
				role = webintel.RoleAssistant
			}
			require.NoError(t, session.AppendTurn(webintel.Turn{
				Role:          role,
				Text:          text,
				TokenEstimate: i + 1,
				Timestamp:     testNow.Add(time.Duration(i) * time.Millisecond),
			}))
		}

		require.NoError(t, store.SaveSession(ctx, session))
		got, err := store.LoadSession(ctx, "s1")

		require.NoError(t, err)
		assert.Equal(t, "/data/report.md", got.SourceFile)
		require.Len(t, got.Turns, 3)
		assert.Equal(t, "first", got.Turns[0].Text)
		assert.Equal(t, webintel.RoleAssistant, got.Turns[1].Role)
		assert.Equal(t, 3, got.Turns[2].TokenEstimate)
		assert.True(t, got.Turns[2].Timestamp.Equal(testNow.Add(2*time.Millisecond)))
		assert.True(t, got.UpdatedAt.Equal(testNow.Add(2*time.Millisecond)))
	})

	t.Run("replaces previous version", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		ctx := context.Background()
		session := webintel.NewSession("s2", testNow)
		require.NoError(t, session.AppendTurn(webintel.Turn{Role: webintel.RoleUser, Text: "one", Timestamp: testNow}))
		require.NoError(t, store.SaveSession(ctx, session))

		require.NoError(t, session.AppendTurn(webintel.Turn{Role: webintel.RoleAssistant, Text: "two", Timestamp: testNow}))
		require.NoError(t, store.SaveSession(ctx, session))

		got, err := store.LoadSession(ctx, "s2")
		require.NoError(t, err)
		require.Len(t, got.Turns, 2)
		assert.Equal(t, "two", got.Turns[1].Text)
	})

	t.Run("rejects nil session", func(t *testing.T) {
		t.Parallel()

		err := newStore(t).SaveSession(context.Background(), nil)

		assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))
	})
}

func TestSessionStore_ListSessions(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	older := webintel.NewSession("older", testNow)
	newer := webintel.NewSession("newer", testNow.Add(time.Hour))
	require.NoError(t, newer.AppendTurn(webintel.Turn{Role: webintel.RoleUser, Text: "hi", Timestamp: testNow.Add(time.Hour)}))
	require.NoError(t, store.SaveSession(ctx, older))
	require.NoError(t, store.SaveSession(ctx, newer))

	sessions, err := store.ListSessions(ctx)

	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].ID)
	assert.Len(t, sessions[0].Turns, 1)
	assert.Equal(t, "older", sessions[1].ID)
	assert.Empty(t, sessions[1].Turns)
}
