// Package payments stores collection events awaiting or past upload.
package payments

import (
	"context"
	"time"

	"github.com/mvillareal/cobraruta/internal/models"
)

// Repository describes storage operations for payment records. Status
// transitions are expressed as dedicated methods so that invalid
// combinations (synced without server id, failed without an error)
// cannot be written.
type Repository interface {
	// Upsert inserts or overwrites a record by its local id.
	Upsert(ctx context.Context, rec *models.PaymentRecord) error

	GetByLocalID(ctx context.Context, localID string) (*models.PaymentRecord, error)

	ListByClient(ctx context.Context, clientID string) ([]*models.PaymentRecord, error)

	// ListPending returns records with sync status pending in creation
	// order, so uploads for the same client keep their causal order.
	ListPending(ctx context.Context) ([]*models.PaymentRecord, error)

	MarkSyncing(ctx context.Context, localID string) error
	MarkSynced(ctx context.Context, localID, serverID string, at time.Time) error
	MarkFailed(ctx context.Context, localID, cause string) error

	// ResetStuckSyncing re-queues records left in syncing by a killed
	// process; the idempotent upload contract makes re-sending safe.
	ResetStuckSyncing(ctx context.Context) (int64, error)

	// RequeueFailed flips failed records back to pending so the next
	// sync pass retries them.
	RequeueFailed(ctx context.Context) (int64, error)

	SetPrintStatus(ctx context.Context, localID string, status models.PrintStatus) error

	CountByStatus(ctx context.Context, status models.SyncStatus) (int, error)
}
