package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deliveryScrapper/pkg/availability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadBeforeSave(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	now := time.Unix(1718618400, 0)
	st, err := db.LoadOrDefault(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, st.PreviousDates)
	assert.Equal(t, now.Unix(), st.LastFound)
	assert.Equal(t, now.Unix(), st.LastNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	want := availability.RunState{
		PreviousDates: []string{"Mon 17 Jun", "Tue 18 Jun"},
		LastFound:     100,
		LastNotFound:  200,
	}
	require.NoError(t, db.Save(ctx, want))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.PreviousDates = nil
	want.LastNotFound = 300
	require.NoError(t, db.Save(ctx, want))

	got, err = db.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.PreviousDates)
	assert.Equal(t, int64(300), got.LastNotFound)
}

func TestRecordRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Unix(1718618400, 0)

	st := availability.NewRunState("", "", "", now)
	require.NoError(t, db.RecordRun(ctx, now, availability.Reconcile(nil, st, now)))
	require.NoError(t, db.RecordRun(ctx, now.Add(time.Minute), availability.Reconcile([]string{"Mon 17 Jun", "Mon 17 Jun"}, st, now)))

	runs, err := db.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.True(t, runs[0].Changed)
	assert.Equal(t, []string{"Mon 17 Jun"}, runs[0].Dates)
	assert.Equal(t, "Mon 17 Jun", runs[0].Emitted)
	assert.Equal(t, now.Add(time.Minute).Unix(), runs[0].RanAt.Unix())

	assert.False(t, runs[1].Changed)
	assert.Empty(t, runs[1].Dates)
}
