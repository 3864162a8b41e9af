package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stock_snapshots (
		snapshot_date DATE NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		storage TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT '',
		carton_type TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (snapshot_date, brand, model, storage, device_type, carton_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_snapshots_date ON stock_snapshots (snapshot_date DESC)`,
	`CREATE TABLE IF NOT EXISTS snapshot_days (
		snapshot_date DATE PRIMARY KEY,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`INSERT INTO snapshot_days (snapshot_date)
		SELECT DISTINCT snapshot_date FROM stock_snapshots
		ON CONFLICT (snapshot_date) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS catalog_models (
		brand TEXT NOT NULL,
		model TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (brand, model)
	)`,
}

// Migrate creates the tables this service owns. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *DB) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range migrations {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}
		return nil
	})
}
