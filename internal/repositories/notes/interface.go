// Package notes stores delinquency notes for unsuccessful visits.
package notes

import (
	"context"
	"time"

	"github.com/mvillareal/cobraruta/internal/models"
)

// Repository mirrors the payment repository's upload lifecycle for
// delinquency notes.
type Repository interface {
	Upsert(ctx context.Context, note *models.DelinquencyNote) error

	GetByLocalID(ctx context.Context, localID string) (*models.DelinquencyNote, error)

	// ListPending returns unsynced notes in creation order.
	ListPending(ctx context.Context) ([]*models.DelinquencyNote, error)

	MarkSyncing(ctx context.Context, localID string) error
	MarkSynced(ctx context.Context, localID, serverID string, at time.Time) error
	MarkFailed(ctx context.Context, localID, cause string) error

	ResetStuckSyncing(ctx context.Context) (int64, error)
	RequeueFailed(ctx context.Context) (int64, error)

	CountByStatus(ctx context.Context, status models.SyncStatus) (int, error)
}
