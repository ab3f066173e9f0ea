// Package clients stores local snapshots of collection accounts.
package clients

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/models"
)

// Repository describes queries over the client replica table.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// ReplaceForCollector deletes every snapshot assigned to the
	// collector and inserts the given set. Callers that need the
	// old-set-or-new-set guarantee must run it inside dbx.WithTx;
	// the sync engine does.
	ReplaceForCollector(ctx context.Context, collectorID string, clients []*models.ClientReplica) error

	GetByID(ctx context.Context, id string) (*models.ClientReplica, error)

	ListByCollector(ctx context.Context, collectorID string) ([]*models.ClientReplica, error)

	// ListByPaymentDay filters the collector's route for one weekday.
	ListByPaymentDay(ctx context.Context, collectorID string, day models.PaymentDay) ([]*models.ClientReplica, error)

	// UpdateBalance writes the advisory local balance after a payment
	// is recorded; the authoritative value arrives on the next pull.
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
}
