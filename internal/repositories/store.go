// Package repositories wires the SQLite device store: it opens the
// database, applies embedded migrations, and hands out one repository
// per table.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mvillareal/cobraruta/internal/repositories/clients"
	"github.com/mvillareal/cobraruta/internal/repositories/migrations"
	"github.com/mvillareal/cobraruta/internal/repositories/notes"
	"github.com/mvillareal/cobraruta/internal/repositories/outbox"
	"github.com/mvillareal/cobraruta/internal/repositories/payments"
	"github.com/mvillareal/cobraruta/internal/repositories/settings"
)

// Store bundles the open database with table repositories. Services
// that need multi-table atomicity use DB with dbx.WithTx and bind
// fresh repositories to the transaction handle.
type Store struct {
	DB *sql.DB

	Clients  clients.Repository
	Payments payments.Repository
	Notes    notes.Repository
	Outbox   outbox.Repository
	Settings settings.Repository
}

// RunMigrations applies the embedded schema to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the device database at dsn and
// returns the repository set.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	// the store is a single shared resource; serialize writers
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate device store: %w", err)
	}

	return &Store{
		DB:       db,
		Clients:  clients.NewSQLiteRepository(db),
		Payments: payments.NewSQLiteRepository(db),
		Notes:    notes.NewSQLiteRepository(db),
		Outbox:   outbox.NewSQLiteRepository(db),
		Settings: settings.NewSQLiteRepository(db),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}
