package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mvillareal/cobraruta/internal/api"
	"github.com/mvillareal/cobraruta/internal/dbx"
	"github.com/mvillareal/cobraruta/internal/logging"
	"github.com/mvillareal/cobraruta/internal/models"
	"github.com/mvillareal/cobraruta/internal/repositories"
	"github.com/mvillareal/cobraruta/internal/repositories/clients"
	"github.com/mvillareal/cobraruta/internal/repositories/notes"
	"github.com/mvillareal/cobraruta/internal/repositories/outbox"
	"github.com/mvillareal/cobraruta/internal/repositories/payments"
)

// ErrSyncInProgress is returned to a caller that raced a running sync.
// The second call is a no-op; re-trigger later if execution must be
// guaranteed.
var ErrSyncInProgress = errors.New("sync already in progress")

const (
	// uploadAttempts bounds the per-record retry loop within one pass.
	uploadAttempts = 5
	// attentionAfter is the outbox attempt count after which an entry
	// is reported as needing manual attention.
	attentionAfter = 10
	// retryBase is the initial backoff between upload attempts.
	retryBase = 500 * time.Millisecond
)

// SyncService keeps the device replica eventually consistent with the
// server: pull replaces the client set wholesale, push drains the
// outbox with at-least-once delivery and server-side deduplication by
// local id.
type SyncService struct {
	store       *repositories.Store
	client      api.Client
	collectorID string
	log         logging.Logger

	mu sync.Mutex
}

func NewSyncService(store *repositories.Store, client api.Client, collectorID string, log logging.Logger) *SyncService {
	return &SyncService{store: store, client: client, collectorID: collectorID, log: log}
}

// SyncAll runs one full pull-then-push cycle. Only one sync may run at
// a time per device; a concurrent call observes ErrSyncInProgress and
// performs no work. Pull and push are independent phases: a pull
// failure does not prevent the push from being attempted.
func (s *SyncService) SyncAll(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer s.mu.Unlock()

	started := time.Now().UTC()
	s.log.Info(ctx, "sync started", "collector_id", s.collectorID)

	pullErr := s.pull(ctx)
	if pullErr != nil {
		s.log.Warn(ctx, "pull failed, continuing with push", "error", pullErr)
	}

	acked, pushErr := s.push(ctx)

	// The watermark reads "last successful sync" in the UI, so a pass
	// where neither the pull landed nor a single record was
	// acknowledged must not move it.
	if pullErr == nil || acked > 0 {
		if err := s.store.Settings.SetLastFullSync(ctx, s.collectorID, time.Now().UTC()); err != nil {
			s.log.Error(ctx, "failed to record sync watermark", "error", err)
		}
	}

	s.log.Info(ctx, "sync finished", "duration", time.Since(started).String(),
		"pull_ok", pullErr == nil, "push_ok", pushErr == nil)

	return errors.Join(pullErr, pushErr)
}

// pull fetches the authoritative client list and atomically replaces
// the local set: a reader observes either the old complete set or the
// new complete set, never a partial one.
func (s *SyncService) pull(ctx context.Context) error {
	list, err := s.client.FetchClients(ctx, s.collectorID)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	err = dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return clients.NewSQLiteRepository(tx).ReplaceForCollector(ctx, s.collectorID, list)
	})
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	s.log.Info(ctx, "pull completed", "clients", len(list))
	return nil
}

// push drains the outbox: payments first, then delinquency notes. A
// single record's failure marks that record and moves on; only storage
// errors abort the batch. Returns how many records the server
// acknowledged.
func (s *SyncService) push(ctx context.Context) (int, error) {
	if err := s.requeueFailed(ctx); err != nil {
		return 0, err
	}
	payAcked, err := s.pushPayments(ctx)
	if err != nil {
		return payAcked, err
	}
	noteAcked, err := s.pushNotes(ctx)
	return payAcked + noteAcked, err
}

func (s *SyncService) requeueFailed(ctx context.Context) error {
	return dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := payments.NewSQLiteRepository(tx).RequeueFailed(ctx); err != nil {
			return err
		}
		if _, err := notes.NewSQLiteRepository(tx).RequeueFailed(ctx); err != nil {
			return err
		}
		_, err := outbox.NewSQLiteRepository(tx).RequeueFailed(ctx)
		return err
	})
}

func (s *SyncService) pushPayments(ctx context.Context) (int, error) {
	pending, err := s.store.Payments.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("push payments: %w", err)
	}

	acked := 0
	for _, rec := range pending {
		if err := s.markSyncing(ctx, rec.LocalID, func(tx dbx.DBTX) error {
			return payments.NewSQLiteRepository(tx).MarkSyncing(ctx, rec.LocalID)
		}); err != nil {
			return acked, err
		}

		serverID, upErr := s.uploadWithBackoff(ctx, func(ctx context.Context) (string, error) {
			return s.client.UploadPayment(ctx, rec)
		})
		if upErr != nil {
			s.log.Warn(ctx, "payment upload failed", "local_id", rec.LocalID, "error", upErr)
			if err := s.markFailed(ctx, rec.LocalID, upErr, func(tx dbx.DBTX, cause string) error {
				return payments.NewSQLiteRepository(tx).MarkFailed(ctx, rec.LocalID, cause)
			}); err != nil {
				return acked, err
			}
			continue
		}

		if err := s.markSynced(ctx, rec.LocalID, func(tx dbx.DBTX) error {
			return payments.NewSQLiteRepository(tx).MarkSynced(ctx, rec.LocalID, serverID, time.Now().UTC())
		}); err != nil {
			return acked, err
		}
		acked++
		s.log.Info(ctx, "payment uploaded", "local_id", rec.LocalID, "server_id", serverID)
	}
	return acked, nil
}

func (s *SyncService) pushNotes(ctx context.Context) (int, error) {
	pending, err := s.store.Notes.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("push notes: %w", err)
	}

	acked := 0
	for _, note := range pending {
		if err := s.markSyncing(ctx, note.LocalID, func(tx dbx.DBTX) error {
			return notes.NewSQLiteRepository(tx).MarkSyncing(ctx, note.LocalID)
		}); err != nil {
			return acked, err
		}

		serverID, upErr := s.uploadWithBackoff(ctx, func(ctx context.Context) (string, error) {
			return s.client.UploadDelinquencyNote(ctx, note)
		})
		if upErr != nil {
			s.log.Warn(ctx, "note upload failed", "local_id", note.LocalID, "error", upErr)
			if err := s.markFailed(ctx, note.LocalID, upErr, func(tx dbx.DBTX, cause string) error {
				return notes.NewSQLiteRepository(tx).MarkFailed(ctx, note.LocalID, cause)
			}); err != nil {
				return acked, err
			}
			continue
		}

		if err := s.markSynced(ctx, note.LocalID, func(tx dbx.DBTX) error {
			return notes.NewSQLiteRepository(tx).MarkSynced(ctx, note.LocalID, serverID, time.Now().UTC())
		}); err != nil {
			return acked, err
		}
		acked++
		s.log.Info(ctx, "note uploaded", "local_id", note.LocalID, "server_id", serverID)
	}
	return acked, nil
}

// uploadWithBackoff retries availability failures with exponential
// backoff; a rejection is terminal for the pass.
func (s *SyncService) uploadWithBackoff(ctx context.Context, upload func(context.Context) (string, error)) (string, error) {
	var serverID string
	backoff := retry.WithMaxRetries(uploadAttempts-1, retry.NewExponential(retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := upload(ctx)
		if err != nil {
			if errors.Is(err, api.ErrUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		serverID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return serverID, nil
}

func (s *SyncService) markSyncing(ctx context.Context, localID string, markRecord func(dbx.DBTX) error) error {
	err := dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := markRecord(tx); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).MarkSyncing(ctx, localID, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("push: marking %s syncing: %w", localID, err)
	}
	return nil
}

func (s *SyncService) markSynced(ctx context.Context, localID string, markRecord func(dbx.DBTX) error) error {
	err := dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := markRecord(tx); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).MarkCompleted(ctx, localID)
	})
	if err != nil {
		return fmt.Errorf("push: marking %s synced: %w", localID, err)
	}
	return nil
}

func (s *SyncService) markFailed(ctx context.Context, localID string, cause error, markRecord func(dbx.DBTX, string) error) error {
	err := dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := markRecord(tx, cause.Error()); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).MarkFailed(ctx, localID, cause.Error())
	})
	if err != nil {
		return fmt.Errorf("push: marking %s failed: %w", localID, err)
	}
	return nil
}

// Recover reclassifies records left in syncing by a killed process as
// pending. The server deduplicates by local id, so re-sending a record
// whose acknowledgment was lost is safe.
func (s *SyncService) Recover(ctx context.Context) error {
	return dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := payments.NewSQLiteRepository(tx).ResetStuckSyncing(ctx)
		if err != nil {
			return err
		}
		m, err := notes.NewSQLiteRepository(tx).ResetStuckSyncing(ctx)
		if err != nil {
			return err
		}
		if _, err := outbox.NewSQLiteRepository(tx).ResetStuckSyncing(ctx); err != nil {
			return err
		}
		if n+m > 0 {
			s.log.Info(ctx, "recovered interrupted uploads", "payments", n, "notes", m)
		}
		return nil
	})
}

// Status is the aggregate the UI shows: queue counts and the last
// successful full-sync watermark.
type Status struct {
	Queue        models.QueueStats
	LastFullSync time.Time
}

func (s *SyncService) Status(ctx context.Context) (Status, error) {
	stats, err := s.store.Outbox.Stats(ctx, attentionAfter)
	if err != nil {
		return Status{}, err
	}
	cfg, err := s.store.Settings.Get(ctx, s.collectorID)
	if err != nil {
		return Status{}, err
	}
	return Status{Queue: stats, LastFullSync: cfg.LastFullSync}, nil
}

// StartAutoSync runs periodic syncs until ctx is cancelled. An idle
// queue skips the network round-trip entirely, so a device with
// nothing to upload does not burn battery on empty syncs.
func (s *SyncService) StartAutoSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cfg, err := s.store.Settings.Get(ctx, s.collectorID)
			if err != nil {
				s.log.Error(ctx, "auto-sync: failed to read settings", "error", err)
				continue
			}
			if !cfg.AutoSync {
				continue
			}

			stats, err := s.store.Outbox.Stats(ctx, attentionAfter)
			if err != nil {
				s.log.Error(ctx, "auto-sync: failed to read outbox stats", "error", err)
				continue
			}
			if stats.Empty() {
				continue
			}

			if err := s.SyncAll(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
				s.log.Warn(ctx, "auto-sync failed", "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}
