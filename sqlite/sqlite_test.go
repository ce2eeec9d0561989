package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fwojciec/webintel/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("migrates an empty database", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		require.NoError(t, db.Open())
		defer db.Close()

		ctx := context.Background()
		version, err := db.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, version)

		for _, table := range []string{"sessions", "turns"} {
			var n int
			require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
			assert.Zero(t, n)
		}
	})

	t.Run("reopens an existing database without reapplying migrations", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "webintel.db")
		first := sqlite.NewDB(path)
		require.NoError(t, first.Open())
		require.NoError(t, first.Close())

		second := sqlite.NewDB(path)
		require.NoError(t, second.Open())
		defer second.Close()

		version, err := second.Version(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, version)
	})

	t.Run("uses WAL for files", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(filepath.Join(t.TempDir(), "webintel.db"))
		require.NoError(t, db.Open())
		defer db.Close()

		var mode string
		require.NoError(t, db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)
	})

	t.Run("fails for a missing directory", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/dir/webintel.db")
		require.Error(t, db.Open())
		require.NoError(t, db.Close())
	})
}
