package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mvillareal/cobraruta/internal/dbx"
	"github.com/mvillareal/cobraruta/internal/models"
)

var ErrNotFound = errors.New("outbox entry not found")

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const outboxColumns = `local_id, type, attempts, last_attempt_at, status, last_error, created_at`

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.OutboxEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	// the primary key keeps the one-entry-per-local-id invariant
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (`+outboxColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.LocalID, string(e.Type), e.Attempts, unixOrZero(e.LastAttemptAt),
		string(e.Status), e.LastError, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox entry %s: %w", e.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.OutboxEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE local_id = ?`, localID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox entry %s: %w", localID, err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.OutboxEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox WHERE status IN (?, ?) ORDER BY created_at, rowid`,
		string(models.OutboxPending), string(models.OutboxFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}
	defer rows.Close()

	var result []*models.OutboxEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSyncing(ctx context.Context, localID string, at time.Time) error {
	return r.exec(ctx, localID, `
		UPDATE outbox SET status = ?, attempts = attempts + 1, last_attempt_at = ?
		WHERE local_id = ?`,
		string(models.OutboxSyncing), at.Unix(), localID)
}

func (r *SQLiteRepository) MarkCompleted(ctx context.Context, localID string) error {
	return r.exec(ctx, localID, `UPDATE outbox SET status = ?, last_error = '' WHERE local_id = ?`,
		string(models.OutboxCompleted), localID)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, localID, cause string) error {
	if cause == "" {
		return fmt.Errorf("%w: failed outbox entry needs an error message", models.ErrValidation)
	}
	return r.exec(ctx, localID, `UPDATE outbox SET status = ?, last_error = ? WHERE local_id = ?`,
		string(models.OutboxFailed), cause, localID)
}

func (r *SQLiteRepository) ResetStuckSyncing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox SET status = ? WHERE status = ?`,
		string(models.OutboxPending), string(models.OutboxSyncing))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck outbox entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) RequeueFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox SET status = ? WHERE status = ?`,
		string(models.OutboxPending), string(models.OutboxFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed outbox entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE status = ?`, string(models.OutboxCompleted))
	if err != nil {
		return 0, fmt.Errorf("failed to prune outbox: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Stats(ctx context.Context, attentionAfter int) (models.QueueStats, error) {
	var s models.QueueStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN (?, ?) AND attempts >= ? THEN 1 ELSE 0 END), 0)
		FROM outbox`,
		string(models.OutboxPending), string(models.OutboxFailed),
		string(models.OutboxPending), string(models.OutboxFailed), attentionAfter).
		Scan(&s.Pending, &s.Failed, &s.NeedsAttention)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("failed to read outbox stats: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, localID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox entry %s: %w", localID, err)
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

func scanEntry(s scanner) (*models.OutboxEntry, error) {
	var (
		e                models.OutboxEntry
		typ, status      string
		lastAt, created  int64
	)
	err := s.Scan(&e.LocalID, &typ, &e.Attempts, &lastAt, &status, &e.LastError, &created)
	if err != nil {
		return nil, err
	}
	if e.Type, err = models.ParseOutboxType(typ); err != nil {
		return nil, err
	}
	if e.Status, err = models.ParseOutboxStatus(status); err != nil {
		return nil, err
	}
	e.LastAttemptAt = timeFromUnix(lastAt)
	e.CreatedAt = time.Unix(created, 0).UTC()
	return &e, nil
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
