package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/dbx"
	"github.com/mvillareal/cobraruta/internal/models"
)

var ErrNotFound = errors.New("payment not found")

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const paymentColumns = `local_id, server_id, client_id, amount, kind, concept, paid_at,
	collector_id, method, receipt_number, sync_status, sync_error, created_offline,
	print_status, created_at, last_sync`

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.PaymentRecord) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			server_id = excluded.server_id,
			amount = excluded.amount,
			kind = excluded.kind,
			concept = excluded.concept,
			paid_at = excluded.paid_at,
			method = excluded.method,
			receipt_number = excluded.receipt_number,
			sync_status = excluded.sync_status,
			sync_error = excluded.sync_error,
			print_status = excluded.print_status,
			last_sync = excluded.last_sync`,
		p.LocalID, p.ServerID, p.ClientID, p.Amount.String(), string(p.Kind), p.Concept,
		p.PaidAt.Unix(), p.CollectorID, string(p.Method), p.ReceiptNumber,
		string(p.SyncStatus), p.SyncError, boolToInt(p.CreatedOffline),
		string(p.PrintStatus), p.CreatedAt.Unix(), unixOrZero(p.LastSync))
	if err != nil {
		return fmt.Errorf("failed to upsert payment %s: %w", p.LocalID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE local_id = ?`, localID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", localID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListByClient(ctx context.Context, clientID string) ([]*models.PaymentRecord, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE client_id = ? ORDER BY created_at DESC, rowid DESC`, clientID)
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.PaymentRecord, error) {
	// rowid breaks ties between records created within the same second
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE sync_status = ? ORDER BY created_at, rowid`,
		string(models.SyncPending))
}

func (r *SQLiteRepository) MarkSyncing(ctx context.Context, localID string) error {
	return r.exec(ctx, localID, `UPDATE payments SET sync_status = ?, sync_error = '' WHERE local_id = ?`,
		string(models.SyncSyncing), localID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID, serverID string, at time.Time) error {
	if serverID == "" {
		return fmt.Errorf("%w: synced record needs a server id", models.ErrValidation)
	}
	return r.exec(ctx, localID, `
		UPDATE payments SET sync_status = ?, server_id = ?, sync_error = '', last_sync = ?
		WHERE local_id = ?`,
		string(models.SyncSynced), serverID, at.Unix(), localID)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, localID, cause string) error {
	if cause == "" {
		return fmt.Errorf("%w: failed record needs an error message", models.ErrValidation)
	}
	return r.exec(ctx, localID, `UPDATE payments SET sync_status = ?, sync_error = ? WHERE local_id = ?`,
		string(models.SyncFailed), cause, localID)
}

func (r *SQLiteRepository) ResetStuckSyncing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET sync_status = ? WHERE sync_status = ?`,
		string(models.SyncPending), string(models.SyncSyncing))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck payments: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) RequeueFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET sync_status = ? WHERE sync_status = ?`,
		string(models.SyncPending), string(models.SyncFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed payments: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) SetPrintStatus(ctx context.Context, localID string, status models.PrintStatus) error {
	return r.exec(ctx, localID, `UPDATE payments SET print_status = ? WHERE local_id = ?`, string(status), localID)
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE sync_status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, localID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", localID, err)
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

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var result []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(s scanner) (*models.PaymentRecord, error) {
	var (
		p                            models.PaymentRecord
		amount                       string
		kind, method, syncSt, prSt   string
		paidAt, createdAt, lastSync  int64
		offline                      int
	)
	err := s.Scan(&p.LocalID, &p.ServerID, &p.ClientID, &amount, &kind, &p.Concept, &paidAt,
		&p.CollectorID, &method, &p.ReceiptNumber, &syncSt, &p.SyncError, &offline,
		&prSt, &createdAt, &lastSync)
	if err != nil {
		return nil, err
	}

	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	if p.Kind, err = models.ParsePaymentKind(kind); err != nil {
		return nil, err
	}
	if p.Method, err = models.ParsePaymentMethod(method); err != nil {
		return nil, err
	}
	if p.SyncStatus, err = models.ParseSyncStatus(syncSt); err != nil {
		return nil, err
	}
	p.PrintStatus = models.PrintStatus(prSt)
	p.CreatedOffline = offline != 0
	p.PaidAt = time.Unix(paidAt, 0).UTC()
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.LastSync = timeFromUnix(lastSync)
	return &p, nil
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
