package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mvillareal/cobraruta/internal/dbx"
	"github.com/mvillareal/cobraruta/internal/models"
)

var ErrNotFound = errors.New("delinquency note not found")

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const noteColumns = `local_id, server_id, client_id, collector_id, reason, description,
	visited_at, next_visit_at, sync_status, sync_error, created_offline, created_at, last_sync`

func (r *SQLiteRepository) Upsert(ctx context.Context, n *models.DelinquencyNote) error {
	if err := n.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delinquency_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			server_id = excluded.server_id,
			reason = excluded.reason,
			description = excluded.description,
			visited_at = excluded.visited_at,
			next_visit_at = excluded.next_visit_at,
			sync_status = excluded.sync_status,
			sync_error = excluded.sync_error,
			last_sync = excluded.last_sync`,
		n.LocalID, n.ServerID, n.ClientID, n.CollectorID, string(n.Reason), n.Description,
		n.VisitedAt.Unix(), unixOrZero(n.NextVisitAt), string(n.SyncStatus), n.SyncError,
		boolToInt(n.CreatedOffline), n.CreatedAt.Unix(), unixOrZero(n.LastSync))
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.DelinquencyNote, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM delinquency_notes WHERE local_id = ?`, localID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", localID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.DelinquencyNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM delinquency_notes WHERE sync_status = ? ORDER BY created_at, rowid`,
		string(models.SyncPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notes: %w", err)
	}
	defer rows.Close()

	var result []*models.DelinquencyNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate note rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSyncing(ctx context.Context, localID string) error {
	return r.exec(ctx, localID, `UPDATE delinquency_notes SET sync_status = ?, sync_error = '' WHERE local_id = ?`,
		string(models.SyncSyncing), localID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID, serverID string, at time.Time) error {
	if serverID == "" {
		return fmt.Errorf("%w: synced note needs a server id", models.ErrValidation)
	}
	return r.exec(ctx, localID, `
		UPDATE delinquency_notes SET sync_status = ?, server_id = ?, sync_error = '', last_sync = ?
		WHERE local_id = ?`,
		string(models.SyncSynced), serverID, at.Unix(), localID)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, localID, cause string) error {
	if cause == "" {
		return fmt.Errorf("%w: failed note needs an error message", models.ErrValidation)
	}
	return r.exec(ctx, localID, `UPDATE delinquency_notes SET sync_status = ?, sync_error = ? WHERE local_id = ?`,
		string(models.SyncFailed), cause, localID)
}

func (r *SQLiteRepository) ResetStuckSyncing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE delinquency_notes SET sync_status = ? WHERE sync_status = ?`,
		string(models.SyncPending), string(models.SyncSyncing))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck notes: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) RequeueFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE delinquency_notes SET sync_status = ? WHERE sync_status = ?`,
		string(models.SyncPending), string(models.SyncFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed notes: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delinquency_notes WHERE sync_status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, localID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update note %s: %w", localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.DelinquencyNote, error) {
	var (
		n                               models.DelinquencyNote
		reason, syncSt                  string
		visited, next, created, synced  int64
		offline                         int
	)
	err := s.Scan(&n.LocalID, &n.ServerID, &n.ClientID, &n.CollectorID, &reason, &n.Description,
		&visited, &next, &syncSt, &n.SyncError, &offline, &created, &synced)
	if err != nil {
		return nil, err
	}

	if n.Reason, err = models.ParseDelinquencyReason(reason); err != nil {
		return nil, err
	}
	if n.SyncStatus, err = models.ParseSyncStatus(syncSt); err != nil {
		return nil, err
	}
	n.CreatedOffline = offline != 0
	n.VisitedAt = time.Unix(visited, 0).UTC()
	n.CreatedAt = time.Unix(created, 0).UTC()
	n.NextVisitAt = timeFromUnix(next)
	n.LastSync = timeFromUnix(synced)
	return &n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeFromUnix(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0).UTC()
}
