package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mvillareal/cobraruta/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, collectorID string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT collector_id, last_full_sync, auto_sync, print_format, printer_device_id, printer_device_name
		FROM settings WHERE collector_id = ?`, collectorID)

	var (
		s        Settings
		lastSync int64
		autoSync int
	)
	err := row.Scan(&s.CollectorID, &lastSync, &autoSync, &s.PrintFormat, &s.PrinterDeviceID, &s.PrinterDeviceName)
	if errors.Is(err, sql.ErrNoRows) {
		if err := r.ensureRow(ctx, collectorID); err != nil {
			return nil, err
		}
		return &Settings{CollectorID: collectorID, AutoSync: true, PrintFormat: "ticket32"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for %s: %w", collectorID, err)
	}

	s.AutoSync = autoSync != 0
	if lastSync != 0 {
		s.LastFullSync = time.Unix(lastSync, 0).UTC()
	}
	return &s, nil
}

func (r *SQLiteRepository) SetLastFullSync(ctx context.Context, collectorID string, at time.Time) error {
	return r.set(ctx, collectorID, `UPDATE settings SET last_full_sync = ? WHERE collector_id = ?`, at.Unix(), collectorID)
}

func (r *SQLiteRepository) SetAutoSync(ctx context.Context, collectorID string, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return r.set(ctx, collectorID, `UPDATE settings SET auto_sync = ? WHERE collector_id = ?`, v, collectorID)
}

func (r *SQLiteRepository) SetPrinterDevice(ctx context.Context, collectorID, deviceID, deviceName string) error {
	return r.set(ctx, collectorID,
		`UPDATE settings SET printer_device_id = ?, printer_device_name = ? WHERE collector_id = ?`,
		deviceID, deviceName, collectorID)
}

func (r *SQLiteRepository) set(ctx context.Context, collectorID, query string, args ...any) error {
	if err := r.ensureRow(ctx, collectorID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update settings for %s: %w", collectorID, err)
	}
	return nil
}

func (r *SQLiteRepository) ensureRow(ctx context.Context, collectorID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (collector_id) VALUES (?)
		ON CONFLICT(collector_id) DO NOTHING`, collectorID)
	if err != nil {
		return fmt.Errorf("failed to init settings for %s: %w", collectorID, err)
	}
	return nil
}
