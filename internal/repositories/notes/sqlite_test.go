package notes

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvillareal/cobraruta/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE delinquency_notes (
  local_id TEXT PRIMARY KEY,
  server_id TEXT NOT NULL DEFAULT '',
  client_id TEXT NOT NULL,
  collector_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  visited_at INTEGER NOT NULL,
  next_visit_at INTEGER NOT NULL DEFAULT 0,
  sync_status TEXT NOT NULL,
  sync_error TEXT NOT NULL DEFAULT '',
  created_offline INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  last_sync INTEGER NOT NULL DEFAULT 0
);
`)
	require.NoError(t, err)
	return db
}

func testNote(localID string, at time.Time) *models.DelinquencyNote {
	return &models.DelinquencyNote{
		LocalID:     localID,
		ClientID:    "c1",
		CollectorID: "col1",
		Reason:      models.ReasonNotHome,
		VisitedAt:   at,
		SyncStatus:  models.SyncPending,
		CreatedAt:   at,
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	at := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)
	n := testNote("n1", at)
	n.Description = "nobody answered"
	n.NextVisitAt = at.AddDate(0, 0, 7)
	require.NoError(t, r.Upsert(ctx, n))

	got, err := r.GetByLocalID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNotHome, got.Reason)
	assert.Equal(t, "nobody answered", got.Description)
	assert.Equal(t, at.AddDate(0, 0, 7), got.NextVisitAt)
}

func TestUpsert_RejectsUnknownReason(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	n := testNote("n1", time.Now().UTC())
	n.Reason = "vacation"
	assert.ErrorIs(t, r.Upsert(context.Background(), n), models.ErrInvalidEnum)
}

func TestNoteLifecycle(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC)
	require.NoError(t, r.Upsert(ctx, testNote("n1", base)))
	require.NoError(t, r.Upsert(ctx, testNote("n2", base.Add(time.Second))))

	pending, err := r.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "n1", pending[0].LocalID)

	require.NoError(t, r.MarkSyncing(ctx, "n1"))
	require.NoError(t, r.MarkSynced(ctx, "n1", "srv-7", base.Add(time.Minute)))

	got, err := r.GetByLocalID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
	assert.Equal(t, "srv-7", got.ServerID)

	n, err := r.CountByStatus(ctx, models.SyncPending)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
