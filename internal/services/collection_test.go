package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvillareal/cobraruta/internal/ledger"
	"github.com/mvillareal/cobraruta/internal/models"
	"github.com/mvillareal/cobraruta/internal/repositories"
	"github.com/mvillareal/cobraruta/internal/repositories/clients"
)

func setupCollection(t *testing.T) (*repositories.Store, *CollectionService) {
	t.Helper()
	store := newTestStore(t)
	return store, NewCollectionService(store, "col1", testLogger())
}

func TestRecordPayment_ReducesBalance(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()
	seedClient(t, store, "c1", 500)

	res, err := col.RecordPayment(ctx, RecordPaymentRequest{
		ClientID: "c1",
		Total:    decimal.NewFromInt(200),
		Moratory: decimal.Zero,
		Kind:     models.PaymentRegular,
		Method:   models.MethodCash,
	})
	require.NoError(t, err)

	assert.True(t, res.Split.Principal.Equal(decimal.NewFromInt(200)))
	assert.True(t, res.Split.Moratory.IsZero())
	assert.True(t, res.Split.NewBalance.Equal(decimal.NewFromInt(300)))

	c, err := store.Clients.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.PendingBalance.Equal(decimal.NewFromInt(300)))

	// the record and its outbox entry were committed together
	require.Len(t, res.Records, 1)
	entry, err := store.Outbox.GetByLocalID(ctx, res.Records[0].LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxPending, entry.Status)
	assert.Equal(t, models.OutboxPayment, entry.Type)
}

func TestRecordPayment_MoratoryCreatesTwoRecords(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()
	seedClient(t, store, "c1", 300)

	res, err := col.RecordPayment(ctx, RecordPaymentRequest{
		ClientID:      "c1",
		Total:         decimal.NewFromInt(250),
		Moratory:      decimal.NewFromInt(50),
		Kind:          models.PaymentRegular,
		Method:        models.MethodCash,
		ReceiptNumber: "R-100",
	})
	require.NoError(t, err)

	assert.True(t, res.Split.Principal.Equal(decimal.NewFromInt(200)))
	assert.True(t, res.Split.Moratory.Equal(decimal.NewFromInt(50)))
	assert.True(t, res.Split.NewBalance.Equal(decimal.NewFromInt(100)))

	require.Len(t, res.Records, 2)
	for _, rec := range res.Records {
		entry, err := store.Outbox.GetByLocalID(ctx, rec.LocalID)
		require.NoError(t, err)
		assert.Equal(t, models.OutboxPending, entry.Status)
	}
}

func TestRecordPayment_OverpaymentFloorsAtZero(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()
	seedClient(t, store, "c1", 100)

	res, err := col.RecordPayment(ctx, RecordPaymentRequest{
		ClientID: "c1",
		Total:    decimal.NewFromInt(150),
		Moratory: decimal.Zero,
		Kind:     models.PaymentSettlement,
		Method:   models.MethodCash,
	})
	require.NoError(t, err)

	assert.True(t, res.Split.NewBalance.IsZero())
	assert.True(t, res.Split.Settled())

	c, err := store.Clients.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.PendingBalance.IsZero())
}

func TestRecordPayment_RejectsBeforePersisting(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()
	seedClient(t, store, "c1", 100)

	_, err := col.RecordPayment(ctx, RecordPaymentRequest{
		ClientID: "c1",
		Total:    decimal.Zero,
		Kind:     models.PaymentRegular,
		Method:   models.MethodCash,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = col.RecordPayment(ctx, RecordPaymentRequest{
		ClientID: "ghost",
		Total:    decimal.NewFromInt(10),
		Kind:     models.PaymentRegular,
		Method:   models.MethodCash,
	})
	assert.ErrorIs(t, err, clients.ErrNotFound)

	pending, err := store.Payments.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRecordPayment_StorageFailureRollsBackEverything(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()
	seedClient(t, store, "c1", 500)

	// break the outbox mid-transaction: the payment write must not
	// survive on its own
	_, err := store.DB.ExecContext(ctx, `DROP TABLE outbox`)
	require.NoError(t, err)

	_, err = col.RecordPayment(ctx, RecordPaymentRequest{
		ClientID: "c1",
		Total:    decimal.NewFromInt(200),
		Kind:     models.PaymentRegular,
		Method:   models.MethodCash,
	})
	require.Error(t, err)

	pending, err := store.Payments.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "payment row must roll back with the outbox write")

	c, err := store.Clients.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.PendingBalance.Equal(decimal.NewFromInt(500)), "balance must be untouched")
}

func TestRecordDelinquency(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()
	seedClient(t, store, "c1", 500)

	next := time.Now().UTC().AddDate(0, 0, 3).Truncate(time.Second)
	note, err := col.RecordDelinquency(ctx, RecordDelinquencyRequest{
		ClientID:    "c1",
		Reason:      models.ReasonNoMoney,
		Description: "asked to come back Thursday",
		NextVisitAt: next,
	})
	require.NoError(t, err)

	got, err := store.Notes.GetByLocalID(ctx, note.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNoMoney, got.Reason)
	assert.True(t, got.NextVisitAt.Equal(next))

	entry, err := store.Outbox.GetByLocalID(ctx, note.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxNote, entry.Type)
}

func TestClientsDueToday(t *testing.T) {
	store, col := setupCollection(t)
	ctx := context.Background()

	today := models.PaymentDayFromWeekday(time.Now().Weekday())
	other := models.PaymentDayMonday
	if other == today {
		other = models.PaymentDayTuesday
	}

	err := store.Clients.ReplaceForCollector(ctx, "col1", []*models.ClientReplica{
		{
			ID: "due", FullName: "Due Today", PaymentDay: today,
			AgreedAmount: decimal.NewFromInt(100), PendingBalance: decimal.NewFromInt(100),
			Status: models.AccountActive, CollectorID: "col1", SyncStatus: models.ClientSynced,
		},
		{
			ID: "later", FullName: "Later", PaymentDay: other,
			AgreedAmount: decimal.NewFromInt(100), PendingBalance: decimal.NewFromInt(100),
			Status: models.AccountActive, CollectorID: "col1", SyncStatus: models.ClientSynced,
		},
	})
	require.NoError(t, err)

	due, err := col.ClientsDueToday(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}
