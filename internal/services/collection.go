// Package services orchestrates the device store, the reconciliation
// engine, and the backend client into the two flows the collector
// touches: recording money in the field and synchronizing with the
// server.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/dbx"
	"github.com/mvillareal/cobraruta/internal/ledger"
	"github.com/mvillareal/cobraruta/internal/logging"
	"github.com/mvillareal/cobraruta/internal/models"
	"github.com/mvillareal/cobraruta/internal/repositories"
	"github.com/mvillareal/cobraruta/internal/repositories/clients"
	"github.com/mvillareal/cobraruta/internal/repositories/notes"
	"github.com/mvillareal/cobraruta/internal/repositories/outbox"
	"github.com/mvillareal/cobraruta/internal/repositories/payments"
)

// newLocalID mints the device-generated identifier that doubles as the
// idempotency key for upload.
func newLocalID() string {
	return uuid.NewString()
}

// CollectionService records payments and delinquency notes. Every write
// commits the record and its outbox entry in one transaction, so a
// crash can never leave a payment without its delivery intent.
type CollectionService struct {
	store       *repositories.Store
	collectorID string
	log         logging.Logger
}

func NewCollectionService(store *repositories.Store, collectorID string, log logging.Logger) *CollectionService {
	return &CollectionService{store: store, collectorID: collectorID, log: log}
}

// RecordPaymentRequest is one collection event as entered in the field.
type RecordPaymentRequest struct {
	ClientID string

	// Total is the cash actually received; Moratory is the late-fee
	// portion of it (clamped to Total, never reducing principal).
	Total    decimal.Decimal
	Moratory decimal.Decimal

	Kind          models.PaymentKind
	Method        models.PaymentMethod
	Concept       string
	ReceiptNumber string

	// Offline marks records created without connectivity; the sync
	// engine treats both paths identically.
	Offline bool
}

// RecordPaymentResult is what the UI and the receipt printer need.
type RecordPaymentResult struct {
	Client  *models.ClientReplica
	Split   ledger.Split
	Records []*models.PaymentRecord
}

// RecordPayment validates, reconciles, and durably stores a collection
// event. On any storage error the payment counts as not recorded:
// nothing may be printed and no success may be shown.
func (s *CollectionService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	client, err := s.store.Clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	split, err := ledger.Reconcile(client.PendingBalance, req.Total, req.Moratory)
	if err != nil {
		return nil, err
	}
	if split.Clamped {
		s.log.Warn(ctx, "moratory portion clamped to total",
			"client_id", req.ClientID, "total", req.Total.String(), "moratory", req.Moratory.String())
	}

	records := ledger.BuildPayments(ledger.PaymentRequest{
		ClientID:      req.ClientID,
		CollectorID:   s.collectorID,
		Kind:          req.Kind,
		Method:        req.Method,
		Concept:       req.Concept,
		ReceiptNumber: req.ReceiptNumber,
		Offline:       req.Offline,
	}, split)

	err = dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		payRepo := payments.NewSQLiteRepository(tx)
		boxRepo := outbox.NewSQLiteRepository(tx)
		cliRepo := clients.NewSQLiteRepository(tx)

		for _, rec := range records {
			if err := payRepo.Upsert(ctx, rec); err != nil {
				return err
			}
			if err := boxRepo.Enqueue(ctx, &models.OutboxEntry{
				LocalID:   rec.LocalID,
				Type:      models.OutboxPayment,
				Status:    models.OutboxPending,
				CreatedAt: rec.CreatedAt,
			}); err != nil {
				return err
			}
		}
		// advisory until the server confirms on the next pull
		return cliRepo.UpdateBalance(ctx, req.ClientID, split.NewBalance)
	})
	if err != nil {
		return nil, fmt.Errorf("payment not recorded: %w", err)
	}

	s.log.Info(ctx, "payment recorded",
		"client_id", req.ClientID, "total", req.Total.String(),
		"records", len(records), "new_balance", split.NewBalance.String(),
		"settled", split.Settled())

	return &RecordPaymentResult{Client: client, Split: split, Records: records}, nil
}

// RecordDelinquencyRequest captures an unsuccessful visit.
type RecordDelinquencyRequest struct {
	ClientID    string
	Reason      models.DelinquencyReason
	Description string
	NextVisitAt time.Time
	Offline     bool
}

// RecordDelinquency stores a delinquency note and queues it for upload
// in one transaction.
func (s *CollectionService) RecordDelinquency(ctx context.Context, req RecordDelinquencyRequest) (*models.DelinquencyNote, error) {
	if _, err := s.store.Clients.GetByID(ctx, req.ClientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &models.DelinquencyNote{
		LocalID:        newLocalID(),
		ClientID:       req.ClientID,
		CollectorID:    s.collectorID,
		Reason:         req.Reason,
		Description:    req.Description,
		VisitedAt:      now,
		NextVisitAt:    req.NextVisitAt,
		SyncStatus:     models.SyncPending,
		CreatedOffline: req.Offline,
		CreatedAt:      now,
	}
	if err := note.Validate(); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := notes.NewSQLiteRepository(tx).Upsert(ctx, note); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).Enqueue(ctx, &models.OutboxEntry{
			LocalID:   note.LocalID,
			Type:      models.OutboxNote,
			Status:    models.OutboxPending,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("visit not recorded: %w", err)
	}

	s.log.Info(ctx, "delinquency note recorded", "client_id", req.ClientID, "reason", string(req.Reason))
	return note, nil
}

// Clients returns the collector's full route.
func (s *CollectionService) Clients(ctx context.Context) ([]*models.ClientReplica, error) {
	return s.store.Clients.ListByCollector(ctx, s.collectorID)
}

// ClientsDueToday filters the route for today's payment day.
func (s *CollectionService) ClientsDueToday(ctx context.Context) ([]*models.ClientReplica, error) {
	day := models.PaymentDayFromWeekday(time.Now().Weekday())
	return s.store.Clients.ListByPaymentDay(ctx, s.collectorID, day)
}
