package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/models"
	"github.com/mvillareal/cobraruta/internal/printer"
	"github.com/mvillareal/cobraruta/internal/services"
)

// Clients prints the collector's full route.
func (a *App) Clients(ctx context.Context) error {
	list, err := a.collection.Clients(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	a.printClients(list)
	return nil
}

// Today prints only the clients whose payment day is today.
func (a *App) Today(ctx context.Context) error {
	list, err := a.collection.ClientsDueToday(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if len(list) == 0 {
		printlnFn("No clients due today.")
		return nil
	}
	a.printClients(list)
	return nil
}

func (a *App) printClients(list []*models.ClientReplica) {
	printlnFn(fmt.Sprintf("%-10s %-24s %-10s %12s", "ID", "NAME", "DAY", "BALANCE"))
	for _, c := range list {
		printlnFn(fmt.Sprintf("%-10s %-24s %-10s %12s",
			c.ID, c.FullName, c.PaymentDay, printer.FormatCurrency(c.PendingBalance)))
	}
	printlnFn(fmt.Sprintf("%d client(s)", len(list)))
}

// Collect records a payment interactively and offers to print the
// receipt when a printer is connected. Recording succeeds or fails on
// local storage alone; neither sync nor printing gates it.
func (a *App) Collect(ctx context.Context) error {
	clientID, err := GetSimpleText(a.reader, "Client id", os.Stdout)
	if err != nil {
		return err
	}
	total, err := GetDecimal(a.reader, "Amount received", decimal.Decimal{}, os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	moratory, err := GetDecimal(a.reader, "Moratory portion (Enter for none)", decimal.Zero, os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	kind, err := GetChoice(a.reader, "Payment kind",
		[]string{string(models.PaymentRegular), string(models.PaymentPartial), string(models.PaymentSettlement)},
		string(models.PaymentRegular), os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	method, err := GetChoice(a.reader, "Payment method",
		[]string{string(models.MethodCash), string(models.MethodTransfer), string(models.MethodCheck)},
		string(models.MethodCash), os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	receipt, err := GetSimpleText(a.reader, "Receipt number", os.Stdout)
	if err != nil {
		return err
	}

	res, err := a.collection.RecordPayment(ctx, services.RecordPaymentRequest{
		ClientID:      clientID,
		Total:         total,
		Moratory:      moratory,
		Kind:          models.PaymentKind(kind),
		Method:        models.PaymentMethod(method),
		ReceiptNumber: receipt,
	})
	if err != nil {
		printlnFn("NOT RECORDED:", err)
		return err
	}

	printlnFn(fmt.Sprintf("Recorded. Balance %s -> %s",
		printer.FormatCurrency(res.Split.PreviousBalance),
		printer.FormatCurrency(res.Split.NewBalance)))
	if res.Split.Settled() {
		printlnFn("** CLIENT IS CURRENT **")
	}

	if a.printer.State() == printer.StateConnected {
		ids := make([]string, 0, len(res.Records))
		for _, r := range res.Records {
			ids = append(ids, r.LocalID)
		}
		if err := a.printer.Print(ctx, a.printer.BuildTicket(res.Client, res.Records, res.Split), ids...); err != nil {
			printlnFn("Receipt not printed:", err)
		}
	}
	return nil
}

// Visit records a delinquency note for an unsuccessful stop.
func (a *App) Visit(ctx context.Context) error {
	clientID, err := GetSimpleText(a.reader, "Client id", os.Stdout)
	if err != nil {
		return err
	}
	reason, err := GetChoice(a.reader, "Reason",
		[]string{
			string(models.ReasonNotHome), string(models.ReasonNoMoney),
			string(models.ReasonTraveling), string(models.ReasonSick), string(models.ReasonOther),
		},
		string(models.ReasonNotHome), os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	desc, err := GetSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	days, err := GetSimpleText(a.reader, "Next visit in how many days? (Enter for 7)", os.Stdout)
	if err != nil {
		return err
	}
	n := 7
	if days != "" {
		if n, err = strconv.Atoi(days); err != nil || n < 1 {
			printlnFn("Error: not a valid number of days:", days)
			return fmt.Errorf("invalid days %q", days)
		}
	}

	_, err = a.collection.RecordDelinquency(ctx, services.RecordDelinquencyRequest{
		ClientID:    clientID,
		Reason:      models.DelinquencyReason(reason),
		Description: desc,
		NextVisitAt: time.Now().UTC().AddDate(0, 0, n),
	})
	if err != nil {
		printlnFn("NOT RECORDED:", err)
		return err
	}
	printlnFn("Visit recorded.")
	return nil
}

// Sync drains the outbox now.
func (a *App) Sync(ctx context.Context) error {
	printlnFn("Syncing...")
	if err := a.sync.SyncAll(ctx); err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			printlnFn("A sync is already running.")
			return nil
		}
		printlnFn("Sync finished with errors:", err)
		return err
	}
	printlnFn("Sync complete.")
	return nil
}

// Status prints queue counts, the last sync watermark, and the printer
// connection state.
func (a *App) Status(ctx context.Context) error {
	st, err := a.sync.Status(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn(fmt.Sprintf("Queue: %d pending, %d failed, %d need attention",
		st.Queue.Pending, st.Queue.Failed, st.Queue.NeedsAttention))
	if st.LastFullSync.IsZero() {
		printlnFn("Last sync: never")
	} else {
		printlnFn("Last sync:", st.LastFullSync.Local().Format("02/01/2006 15:04:05"))
	}
	printlnFn("Printer:", string(a.printer.State()))
	return nil
}

// ConnectPrinter reconnects the last paired printer, falling back to
// discovery when none was paired yet.
func (a *App) ConnectPrinter(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	printlnFn("Connecting printer...")
	info, err := a.printer.Reconnect(ctx)
	if errors.Is(err, printer.ErrNoPairedDevice) {
		info, err = a.printer.Connect(ctx)
	}
	if err != nil {
		printlnFn("Printer not connected:", err)
		return err
	}
	printlnFn("Connected to", info.Name, "("+info.ID+")")
	return nil
}

// Reprint prints a stored payment again, marked as a reprint.
func (a *App) Reprint(ctx context.Context) error {
	localID, err := GetSimpleText(a.reader, "Payment local id", os.Stdout)
	if err != nil {
		return err
	}
	rec, err := a.store.Payments.GetByLocalID(ctx, localID)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	client, err := a.store.Clients.GetByID(ctx, rec.ClientID)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if err := a.printer.Print(ctx, a.printer.RebuildTicket(client, rec), rec.LocalID); err != nil {
		printlnFn("Receipt not printed:", err)
		return err
	}
	printlnFn("Receipt reprinted.")
	return nil
}
