package repository

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart"
	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/repository/storetest"
)

// TestStoreContract runs against a disposable database named by
// TEST_DATABASE_URL. Tables are truncated before every subtest.
func TestStoreContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	migrationsFS, err := fs.Sub(turbostart.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(url, migrationsFS))

	pool, err := NewPool(ctx, url, PoolOptions{MaxConns: 30})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool, 5*time.Second)
	storetest.Run(t, func(t *testing.T) domain.Store {
		_, err := pool.Exec(ctx, `TRUNCATE activity_logs, referrals, tasks, accounts RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return store
	})
}

func TestMapError(t *testing.T) {
	require.NoError(t, mapError(nil, domain.ErrAccountNotFound))
	require.ErrorIs(t, mapError(context.DeadlineExceeded, nil), domain.ErrTransient)
}
