package clients

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvillareal/cobraruta/internal/dbx"
	"github.com/mvillareal/cobraruta/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE clients (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  payment_day TEXT NOT NULL,
  agreed_amount TEXT NOT NULL,
  pending_balance TEXT NOT NULL,
  last_payment_at INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  collector_id TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  last_sync INTEGER NOT NULL DEFAULT 0,
  sync_status TEXT NOT NULL DEFAULT 'synced'
);
`)
	require.NoError(t, err)
	return db
}

func testClient(id, collector string, balance int64) *models.ClientReplica {
	return &models.ClientReplica{
		ID:             id,
		FullName:       "Client " + id,
		PaymentDay:     models.PaymentDayFriday,
		AgreedAmount:   decimal.NewFromInt(100),
		PendingBalance: decimal.NewFromInt(balance),
		Status:         models.AccountActive,
		CollectorID:    collector,
		SyncStatus:     models.ClientSynced,
		LastSync:       time.Now().UTC(),
	}
}

func TestReplaceForCollector_SwapsWholeSet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{
		testClient("a", "col1", 500),
		testClient("b", "col1", 300),
	}))
	// another collector's set must be untouched by col1 pulls
	require.NoError(t, r.ReplaceForCollector(ctx, "col2", []*models.ClientReplica{
		testClient("z", "col2", 900),
	}))

	require.NoError(t, r.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{
		testClient("c", "col1", 700),
	}))

	got, err := r.ListByCollector(ctx, "col1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)

	other, err := r.ListByCollector(ctx, "col2")
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestReplaceForCollector_RollsBackInsideTx(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	base := NewSQLiteRepository(db)
	require.NoError(t, base.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{
		testClient("a", "col1", 500),
	}))

	// a failing replacement inside a transaction must leave the old set
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		bad := testClient("b", "col1", 300)
		bad.PaymentDay = "someday"
		return r.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{bad})
	})
	require.Error(t, err)

	got, err := base.ListByCollector(ctx, "col1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestGetByID_RoundTripAndNotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	c := testClient("a", "col1", 500)
	c.Phone = "555-0101"
	c.LastPaymentAt = time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	require.NoError(t, r.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{c}))

	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "555-0101", got.Phone)
	assert.True(t, got.PendingBalance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, c.LastPaymentAt, got.LastPaymentAt)

	_, err = r.GetByID(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListByPaymentDay(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	a := testClient("a", "col1", 100)
	b := testClient("b", "col1", 100)
	b.PaymentDay = models.PaymentDayMonday
	require.NoError(t, r.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{a, b}))

	got, err := r.ListByPaymentDay(ctx, "col1", models.PaymentDayMonday)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestUpdateBalance(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{
		testClient("a", "col1", 500),
	}))

	require.NoError(t, r.UpdateBalance(ctx, "a", decimal.NewFromInt(300)))
	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.PendingBalance.Equal(decimal.NewFromInt(300)))

	assert.True(t, errors.Is(r.UpdateBalance(ctx, "nope", decimal.Zero), ErrNotFound))
}
