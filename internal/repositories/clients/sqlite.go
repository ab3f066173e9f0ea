package clients

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

// ErrNotFound is returned when no snapshot exists for the id.
var ErrNotFound = errors.New("client not found")

// SQLiteRepository implements Repository over a DBTX, so it works both
// on *sql.DB and inside a transaction.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const clientColumns = `id, full_name, phone, address, payment_day, agreed_amount,
	pending_balance, last_payment_at, status, collector_id, notes, last_sync, sync_status`

func (r *SQLiteRepository) ReplaceForCollector(ctx context.Context, collectorID string, cs []*models.ClientReplica) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE collector_id = ?`, collectorID); err != nil {
		return fmt.Errorf("failed to clear clients for collector %s: %w", collectorID, err)
	}

	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO clients (`+clientColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.FullName, c.Phone, c.Address, string(c.PaymentDay),
			c.AgreedAmount.String(), c.PendingBalance.String(), unixOrZero(c.LastPaymentAt),
			string(c.Status), c.CollectorID, c.Notes, unixOrZero(c.LastSync), string(c.SyncStatus))
		if err != nil {
			return fmt.Errorf("failed to insert client %s: %w", c.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.ClientReplica, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListByCollector(ctx context.Context, collectorID string) ([]*models.ClientReplica, error) {
	return r.list(ctx, `SELECT `+clientColumns+` FROM clients WHERE collector_id = ? ORDER BY full_name`, collectorID)
}

func (r *SQLiteRepository) ListByPaymentDay(ctx context.Context, collectorID string, day models.PaymentDay) ([]*models.ClientReplica, error) {
	return r.list(ctx, `SELECT `+clientColumns+` FROM clients WHERE collector_id = ? AND payment_day = ? ORDER BY full_name`,
		collectorID, string(day))
}

func (r *SQLiteRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE clients SET pending_balance = ? WHERE id = ?`, balance.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance for client %s: %w", id, err)
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

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.ClientReplica, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var result []*models.ClientReplica
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate client rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (*models.ClientReplica, error) {
	var (
		c                       models.ClientReplica
		day, status, syncStatus string
		agreed, balance         string
		lastPayment, lastSync   int64
	)
	err := s.Scan(&c.ID, &c.FullName, &c.Phone, &c.Address, &day, &agreed,
		&balance, &lastPayment, &status, &c.CollectorID, &c.Notes, &lastSync, &syncStatus)
	if err != nil {
		return nil, err
	}

	if c.PaymentDay, err = models.ParsePaymentDay(day); err != nil {
		return nil, err
	}
	if c.Status, err = models.ParseAccountStatus(status); err != nil {
		return nil, err
	}
	c.SyncStatus = models.ClientSyncStatus(syncStatus)

	if c.AgreedAmount, err = decimal.NewFromString(agreed); err != nil {
		return nil, fmt.Errorf("bad agreed amount %q: %w", agreed, err)
	}
	if c.PendingBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("bad pending balance %q: %w", balance, err)
	}
	c.LastPaymentAt = timeFromUnix(lastPayment)
	c.LastSync = timeFromUnix(lastSync)
	return &c, nil
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
