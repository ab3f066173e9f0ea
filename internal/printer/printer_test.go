package printer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvillareal/cobraruta/internal/ledger"
	"github.com/mvillareal/cobraruta/internal/logging"
	"github.com/mvillareal/cobraruta/internal/models"
	"github.com/mvillareal/cobraruta/internal/repositories"
)

// fakeTransport records chunk writes and can fail at a given chunk
// index or simulate a peripheral-side disconnect.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	writes       [][]byte
	failAt       int
	lastTarget   Target
	connectErr   error
	onDisconnect func()
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failAt: -1}
}

func (f *fakeTransport) Connect(_ context.Context, target Target) (DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTarget = target
	if f.connectErr != nil {
		return DeviceInfo{}, f.connectErr
	}
	f.connected = true
	return DeviceInfo{ID: "AA:BB:CC:DD:EE:FF", Name: "MTP-2"}, nil
}

func (f *fakeTransport) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	if f.failAt >= 0 && len(f.writes) == f.failAt {
		return errors.New("gatt write failed")
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeTransport) OnDisconnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = fn
}

// dropLink simulates the silent BLE disconnect the GATT server pushes.
func (f *fakeTransport) dropLink() {
	f.mu.Lock()
	f.connected = false
	fn := f.onDisconnect
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupPrinter(t *testing.T) (*repositories.Store, *fakeTransport, *Printer) {
	t.Helper()
	store, err := repositories.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tr := newFakeTransport()
	p := NewPrinter(tr, store, "col1", Config{
		Merchant:      "COBRARUTA",
		CollectorName: "J. Ramirez",
		ChunkSize:     64,
		ChunkDelay:    time.Millisecond,
	}, testLogger())
	return store, tr, p
}

func seedPayment(t *testing.T, store *repositories.Store, localID string) {
	t.Helper()
	err := store.Payments.Upsert(context.Background(), &models.PaymentRecord{
		LocalID:       localID,
		ClientID:      "c1",
		Amount:        decimal.NewFromInt(200),
		Kind:          models.PaymentRegular,
		PaidAt:        time.Now().UTC(),
		CollectorID:   "col1",
		Method:        models.MethodCash,
		ReceiptNumber: "R-0042",
		SyncStatus:    models.SyncPending,
		PrintStatus:   models.PrintPending,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestConnect_PersistsDeviceForReconnect(t *testing.T) {
	store, tr, p := setupPrinter(t)
	ctx := context.Background()

	assert.Equal(t, StateDisconnected, p.State())

	info, err := p.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, p.State())
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", info.ID)
	assert.Empty(t, tr.lastTarget.DeviceID, "first pairing must discover, not demand a device")

	st, err := store.Settings.Get(ctx, "col1")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", st.PrinterDeviceID)
	assert.Equal(t, "MTP-2", st.PrinterDeviceName)
}

func TestReconnect_UsesPersistedDevice(t *testing.T) {
	store, tr, p := setupPrinter(t)
	ctx := context.Background()

	_, err := p.Reconnect(ctx)
	assert.ErrorIs(t, err, ErrNoPairedDevice)

	require.NoError(t, store.Settings.SetPrinterDevice(ctx, "col1", "AA:BB:CC:DD:EE:FF", "MTP-2"))

	_, err = p.Reconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", tr.lastTarget.DeviceID, "reconnect must skip discovery")
}

func TestState_RederivedFromTransport(t *testing.T) {
	_, tr, p := setupPrinter(t)

	_, err := p.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnected, p.State())

	// link drops without any explicit teardown
	tr.dropLink()
	assert.Equal(t, StateDisconnected, p.State())
}

func TestPrint_ChunksSequentiallyAndAdvancesStatus(t *testing.T) {
	store, tr, p := setupPrinter(t)
	ctx := context.Background()
	seedPayment(t, store, "p1")

	_, err := p.Connect(ctx)
	require.NoError(t, err)

	tk := sampleTicket()
	require.NoError(t, p.Print(ctx, tk, "p1"))

	want := EncodeTicket(tk)
	var sent []byte
	for _, w := range tr.writes {
		assert.LessOrEqual(t, len(w), 64, "every chunk must respect the write bound")
		sent = append(sent, w...)
	}
	assert.True(t, bytes.Equal(want, sent), "chunks must reassemble into the encoded ticket")

	rec, err := store.Payments.GetByLocalID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PrintPrinted, rec.PrintStatus)

	// printing the same record again marks it a reprint
	require.NoError(t, p.Print(ctx, tk, "p1"))
	rec, err = store.Payments.GetByLocalID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PrintReprinted, rec.PrintStatus)
}

func TestPrint_FailedChunkAbortsRemainder(t *testing.T) {
	store, tr, p := setupPrinter(t)
	ctx := context.Background()
	seedPayment(t, store, "p1")

	_, err := p.Connect(ctx)
	require.NoError(t, err)

	tr.failAt = 1
	err = p.Print(ctx, sampleTicket(), "p1")
	require.Error(t, err)
	assert.Len(t, tr.writes, 1, "no chunk may follow a failed write")

	rec, err := store.Payments.GetByLocalID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PrintPending, rec.PrintStatus, "a failed print must not claim the receipt printed")
}

func TestPrint_RequiresConnection(t *testing.T) {
	_, _, p := setupPrinter(t)
	err := p.Print(context.Background(), sampleTicket())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBuildAndRebuildTicket(t *testing.T) {
	_, _, p := setupPrinter(t)

	client := &models.ClientReplica{
		ID: "c1", FullName: "Maria Lopez", Phone: "555-0101",
		PaymentDay: models.PaymentDayFriday, PendingBalance: decimal.NewFromInt(300),
	}
	rec := &models.PaymentRecord{
		LocalID: "p1", ClientID: "c1", Amount: decimal.NewFromInt(200),
		Kind: models.PaymentRegular, Method: models.MethodCash,
		ReceiptNumber: "R-0042", PaidAt: time.Now().UTC(),
	}

	split := ledger.Split{
		PreviousBalance: decimal.NewFromInt(500),
		Principal:       decimal.NewFromInt(200),
		Moratory:        decimal.Zero,
		NewBalance:      decimal.NewFromInt(300),
	}
	built := p.BuildTicket(client, []*models.PaymentRecord{rec}, split)
	assert.Equal(t, "R-0042", built.ReceiptNumber)
	assert.True(t, built.AmountReceived.Equal(decimal.NewFromInt(200)))
	assert.True(t, built.PreviousBalance.Equal(decimal.NewFromInt(500)))
	assert.False(t, built.Reprint)

	tk := p.RebuildTicket(client, rec)
	assert.True(t, tk.Reprint)
	assert.Equal(t, "R-0042", tk.ReceiptNumber)
	assert.True(t, tk.NewBalance.Equal(decimal.NewFromInt(300)))
	assert.False(t, tk.Settled)
	assert.Equal(t, "COBRARUTA", tk.Merchant)
}
