package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mvillareal/cobraruta/internal/ledger"
	"github.com/mvillareal/cobraruta/internal/logging"
	"github.com/mvillareal/cobraruta/internal/models"
	"github.com/mvillareal/cobraruta/internal/repositories"
)

// ErrNoPairedDevice is returned by Reconnect when no printer was ever
// paired on this device.
var ErrNoPairedDevice = errors.New("no paired printer device")

// ConnState is the printer connection state machine:
// disconnected -> connecting -> connected, and back to disconnected on
// teardown or a transport disconnect event.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

const (
	defaultChunkSize  = 128
	defaultChunkDelay = 20 * time.Millisecond
)

// Config carries the receipt header and transmission tuning.
type Config struct {
	Merchant      string
	Slogan        string
	CollectorName string

	// ChunkSize bounds each characteristic write; ChunkDelay is the
	// pause between consecutive chunks so slow printers keep up.
	ChunkSize  int
	ChunkDelay time.Duration
}

// Printer owns the connection state machine and the print pipeline. It
// is constructed once and shared; all methods are safe for concurrent
// use, though writes to the characteristic are serialized.
type Printer struct {
	transport   Transport
	store       *repositories.Store
	collectorID string
	cfg         Config
	log         logging.Logger

	mu     sync.Mutex
	state  ConnState
	device DeviceInfo
}

func NewPrinter(transport Transport, store *repositories.Store, collectorID string, cfg Config, log logging.Logger) *Printer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = defaultChunkDelay
	}
	p := &Printer{
		transport:   transport,
		store:       store,
		collectorID: collectorID,
		cfg:         cfg,
		log:         log,
		state:       StateDisconnected,
	}
	transport.OnDisconnect(func() {
		p.mu.Lock()
		p.state = StateDisconnected
		p.mu.Unlock()
		log.Warn(context.Background(), "printer link dropped", "device_id", p.device.ID)
	})
	return p
}

// State re-derives the connection state from the live transport; a
// cached "connected" is never trusted because BLE links drop silently.
func (p *Printer) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateConnected && !p.transport.Connected() {
		p.state = StateDisconnected
	}
	return p.state
}

// Device returns the last connected peripheral, if any.
func (p *Printer) Device() DeviceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device
}

// Connect discovers the first advertising printer, connects, and
// persists the device identity so later sessions can Reconnect without
// a picker.
func (p *Printer) Connect(ctx context.Context) (DeviceInfo, error) {
	return p.connect(ctx, Target{})
}

// Reconnect goes straight to the last paired device.
func (p *Printer) Reconnect(ctx context.Context) (DeviceInfo, error) {
	st, err := p.store.Settings.Get(ctx, p.collectorID)
	if err != nil {
		return DeviceInfo{}, err
	}
	if st.PrinterDeviceID == "" {
		return DeviceInfo{}, ErrNoPairedDevice
	}
	return p.connect(ctx, Target{DeviceID: st.PrinterDeviceID})
}

func (p *Printer) connect(ctx context.Context, target Target) (DeviceInfo, error) {
	p.mu.Lock()
	if p.state != StateDisconnected {
		state := p.state
		p.mu.Unlock()
		return DeviceInfo{}, fmt.Errorf("printer is %s", state)
	}
	p.state = StateConnecting
	p.mu.Unlock()

	info, err := p.transport.Connect(ctx, target)

	p.mu.Lock()
	if err != nil {
		p.state = StateDisconnected
		p.mu.Unlock()
		return DeviceInfo{}, err
	}
	p.state = StateConnected
	p.device = info
	p.mu.Unlock()

	if err := p.store.Settings.SetPrinterDevice(ctx, p.collectorID, info.ID, info.Name); err != nil {
		p.log.Error(ctx, "persisting printer device", "error", err)
	}
	p.log.Info(ctx, "printer connected", "device_id", info.ID, "device_name", info.Name)
	return info, nil
}

// Disconnect tears the link down explicitly.
func (p *Printer) Disconnect() error {
	p.mu.Lock()
	p.state = StateDisconnected
	p.mu.Unlock()
	return p.transport.Close()
}

// Print encodes the ticket and streams it in bounded chunks, strictly
// sequential with a small pause between writes. The first failed chunk
// aborts the rest; a partially printed ticket is surfaced to the user,
// never patched with more bytes. On success the named payment rows get
// their print status advanced (pending -> printed -> reprinted).
func (p *Printer) Print(ctx context.Context, t Ticket, recordIDs ...string) error {
	if p.State() != StateConnected {
		return ErrNotConnected
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf := EncodeTicket(t)
	chunks := Chunks(buf, p.cfg.ChunkSize)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.transport.Write(chunk); err != nil {
			p.log.Error(ctx, "print aborted",
				"chunk", i, "of", len(chunks), "receipt", t.ReceiptNumber, "error", err)
			return fmt.Errorf("printing receipt %s: chunk %d/%d: %w", t.ReceiptNumber, i+1, len(chunks), err)
		}
		if i < len(chunks)-1 {
			time.Sleep(p.cfg.ChunkDelay)
		}
	}

	for _, id := range recordIDs {
		if err := p.advancePrintStatus(ctx, id); err != nil {
			p.log.Error(ctx, "updating print status", "local_id", id, "error", err)
		}
	}
	p.log.Info(ctx, "receipt printed", "receipt", t.ReceiptNumber, "bytes", len(buf), "chunks", len(chunks))
	return nil
}

func (p *Printer) advancePrintStatus(ctx context.Context, localID string) error {
	rec, err := p.store.Payments.GetByLocalID(ctx, localID)
	if err != nil {
		return err
	}
	next := models.PrintPrinted
	if rec.PrintStatus != models.PrintPending {
		next = models.PrintReprinted
	}
	return p.store.Payments.SetPrintStatus(ctx, localID, next)
}

// BuildTicket lays out the receipt for a freshly recorded payment,
// using the reconciliation split for the balance block.
func (p *Printer) BuildTicket(client *models.ClientReplica, records []*models.PaymentRecord, split ledger.Split) Ticket {
	t := Ticket{
		Merchant:        p.cfg.Merchant,
		Slogan:          p.cfg.Slogan,
		ClientName:      client.FullName,
		ClientPhone:     client.Phone,
		ClientAddress:   client.Address,
		PaymentDay:      client.PaymentDay,
		PreviousBalance: split.PreviousBalance,
		AmountReceived:  split.Principal.Add(split.Moratory),
		Moratory:        split.Moratory,
		NewBalance:      split.NewBalance,
		Settled:         split.Settled(),
		CollectorName:   p.cfg.CollectorName,
	}
	if len(records) > 0 {
		first := records[0]
		t.ReceiptNumber = first.ReceiptNumber
		t.PaidAt = first.PaidAt
		t.Kind = first.Kind
		t.Method = first.Method
		t.Concept = first.Concept
	}
	return t
}

// RebuildTicket lays out a reprint from a stored record. The balance
// block shows the client's current balance only; the pre-payment
// balance is not reconstructed.
func (p *Printer) RebuildTicket(client *models.ClientReplica, rec *models.PaymentRecord) Ticket {
	return Ticket{
		Merchant:       p.cfg.Merchant,
		Slogan:         p.cfg.Slogan,
		ReceiptNumber:  rec.ReceiptNumber,
		ClientName:     client.FullName,
		ClientPhone:    client.Phone,
		ClientAddress:  client.Address,
		PaymentDay:     client.PaymentDay,
		PaidAt:         rec.PaidAt,
		Kind:           rec.Kind,
		Method:         rec.Method,
		Concept:        rec.Concept,
		AmountReceived: rec.Amount,
		NewBalance:     client.PendingBalance,
		Settled:        client.PendingBalance.IsZero(),
		CollectorName:  p.cfg.CollectorName,
		Reprint:        true,
	}
}
