// backend-go/internal/repository/postgres/snapshot_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/repository"
)

const dateLayout = "2006-01-02"

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// SaveSnapshot replaces the stored snapshot of day. Rows sharing a product key
// are summed. The day is recorded even when rows is empty.
func (r *snapshotRepository) SaveSnapshot(ctx context.Context, day time.Time, rows []domain.StockSummaryRow) error {
	date := day.Format(dateLayout)
	merged := mergeRows(rows)

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Drop the previous capture of the same day
		if _, err := tx.ExecContext(ctx, `DELETE FROM stock_snapshots WHERE snapshot_date = $1`, date); err != nil {
			return fmt.Errorf("failed to clear snapshot %s: %w", date, err)
		}

		// 2. Mark the day as captured
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_days (snapshot_date, captured_at) VALUES ($1, NOW())
			ON CONFLICT (snapshot_date) DO UPDATE SET captured_at = EXCLUDED.captured_at
		`, date); err != nil {
			return fmt.Errorf("failed to mark snapshot day %s: %w", date, err)
		}

		// 3. Insert the new rows
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO stock_snapshots (
				snapshot_date, brand, model, storage, device_type, carton_type, quantity, captured_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range merged {
			if _, err := stmt.ExecContext(ctx,
				date,
				row.Brand,
				row.Model,
				row.Storage,
				row.DeviceType,
				row.CartonType,
				row.Quantity,
			); err != nil {
				return fmt.Errorf("failed to insert snapshot row: %w", err)
			}
		}

		return nil
	})
}

// GetSnapshot returns the rows captured for day. A captured day with no stock
// returns an empty slice; a day never captured returns repository.ErrNotFound.
func (r *snapshotRepository) GetSnapshot(ctx context.Context, day time.Time) ([]domain.StockSummaryRow, error) {
	date := day.Format(dateLayout)

	var captured bool
	if err := r.db.GetContext(ctx, &captured,
		`SELECT EXISTS (SELECT 1 FROM snapshot_days WHERE snapshot_date = $1)`, date); err != nil {
		return nil, fmt.Errorf("error checking snapshot day: %w", err)
	}
	if !captured {
		return nil, repository.ErrNotFound
	}

	query := `
		SELECT brand, model, storage, device_type, carton_type, quantity
		FROM stock_snapshots
		WHERE snapshot_date = $1
		ORDER BY device_type, brand, model, storage, carton_type
	`

	rows := make([]domain.StockSummaryRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("error getting snapshot: %w", err)
	}

	return rows, nil
}

func (r *snapshotRepository) LatestSnapshotBefore(ctx context.Context, day time.Time) (time.Time, []domain.StockSummaryRow, error) {
	var latest time.Time
	err := r.db.GetContext(ctx, &latest, `
		SELECT snapshot_date
		FROM snapshot_days
		WHERE snapshot_date < $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`, day.Format(dateLayout))
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil, repository.ErrNotFound
	}
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("error finding previous snapshot: %w", err)
	}

	rows, err := r.GetSnapshot(ctx, latest)
	if err != nil {
		return time.Time{}, nil, err
	}
	return latest, rows, nil
}

func (r *snapshotRepository) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `
		SELECT d.snapshot_date, COUNT(s.snapshot_date) AS "rows", COALESCE(SUM(s.quantity), 0) AS total_stock
		FROM snapshot_days d
		LEFT JOIN stock_snapshots s ON s.snapshot_date = d.snapshot_date
		GROUP BY d.snapshot_date
		ORDER BY d.snapshot_date DESC
		LIMIT $1
	`

	var infos []domain.SnapshotInfo
	if err := r.db.SelectContext(ctx, &infos, query, limit); err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}

	return infos, nil
}

func mergeRows(rows []domain.StockSummaryRow) []domain.StockSummaryRow {
	index := make(map[domain.ProductKey]int, len(rows))
	merged := make([]domain.StockSummaryRow, 0, len(rows))

	for _, row := range rows {
		key := domain.NewProductKey(row.Brand, row.Model, row.Storage, row.DeviceType, row.CartonType)
		if pos, ok := index[key]; ok {
			merged[pos].Quantity += row.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, domain.StockSummaryRow{ProductKey: key, Quantity: row.Quantity})
	}

	return merged
}
