package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/domain"
)

type failingActivityStore struct{}

func (failingActivityStore) AppendActivity(context.Context, domain.ActivityLog) error {
	return errors.New("disk full")
}

func (failingActivityStore) ListActivity(context.Context, int64, int) ([]*domain.ActivityLog, error) {
	return nil, nil
}

func TestActivityRecorder_SwallowsWriteFailures(t *testing.T) {
	reporter := &stubReporter{errs: make(chan error, 1)}
	rec := NewActivityRecorder(failingActivityStore{}, reporter, nil)

	require.NotPanics(t, func() {
		rec.Record(context.Background(), nil, 1, "test:action", "details")
	})

	select {
	case err := <-reporter.errs:
		assert.EqualError(t, err, "disk full")
	case <-time.After(time.Second):
		t.Fatal("error was not reported")
	}
}

func TestActivityRecorder_WritesAfterCallerCancellation(t *testing.T) {
	store := newMemoryStore()
	rec := NewActivityRecorder(store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	id := int64(7)
	rec.Record(ctx, &id, 70, "test:action", "late")

	entries := store.Activity()
	require.Len(t, entries, 1)
	assert.Equal(t, "test:action", entries[0].Action)
	assert.Equal(t, int64(70), entries[0].ExternalID)
}

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newServices(t, store, testCredits)

	for id := int64(1); id <= 7; id++ {
		_, _, err := svc.accounts.GetOrCreate(ctx, id, domain.Profile{}, "")
		require.NoError(t, err)
		_, err = svc.artifacts.Create(ctx, id, CreateArtifactInput{Title: "t"})
		require.NoError(t, err)
	}

	st, err := svc.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.TotalUsers)
	assert.Equal(t, int64(7), st.TotalTasks)
	assert.Len(t, st.RecentUsers, 5)
	assert.Len(t, st.RecentTasks, 5)

	users, err := svc.admin.Users(ctx, 2, 5)
	require.NoError(t, err)
	assert.Len(t, users.Items, 2)
	assert.Equal(t, int64(2), users.Pages())

	tasks, err := svc.admin.Tasks(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, tasks.Limit)
	assert.Len(t, tasks.Items, 7)
}

func TestAdminService_StatsReflectLatestWrites(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newServices(t, store, testCredits)

	_, _, err := svc.accounts.GetOrCreate(ctx, 1, domain.Profile{}, "")
	require.NoError(t, err)
	st, err := svc.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalUsers)

	_, _, err = svc.accounts.GetOrCreate(ctx, 2, domain.Profile{}, "")
	require.NoError(t, err)
	st, err = svc.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalUsers)
	require.Len(t, st.RecentUsers, 2)
	assert.Equal(t, int64(2), st.RecentUsers[0].ExternalID)
}
