// Package outbox stores the durable queue of locally created records
// awaiting confirmed delivery to the server.
package outbox

import (
	"context"
	"time"

	"github.com/mvillareal/cobraruta/internal/models"
)

// Repository describes the durable outbox queue. Exactly one entry may
// exist per local id; enqueueing must happen in the same transaction as
// the record it describes.
type Repository interface {
	Enqueue(ctx context.Context, entry *models.OutboxEntry) error

	GetByLocalID(ctx context.Context, localID string) (*models.OutboxEntry, error)

	// ListPending returns pending and failed entries in creation order;
	// failed entries re-enter the queue on the next sync pass.
	ListPending(ctx context.Context) ([]*models.OutboxEntry, error)

	// MarkSyncing bumps the attempt counter and stamps the attempt time.
	MarkSyncing(ctx context.Context, localID string, at time.Time) error
	MarkCompleted(ctx context.Context, localID string) error
	MarkFailed(ctx context.Context, localID, cause string) error

	ResetStuckSyncing(ctx context.Context) (int64, error)

	// RequeueFailed flips failed entries back to pending; the attempt
	// counter and last error survive for observability.
	RequeueFailed(ctx context.Context) (int64, error)

	// DeleteCompleted prunes acknowledged entries.
	DeleteCompleted(ctx context.Context) (int64, error)

	// Stats reports pending/failed counts plus how many entries have
	// crossed the needs-attention attempt threshold.
	Stats(ctx context.Context, attentionAfter int) (models.QueueStats, error)
}
