// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vanchoco/backend-go/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SnapshotRepository persists the end-of-day stock summaries that serve as
// "yesterday" for the next day's movement report.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, day time.Time, rows []domain.StockSummaryRow) error
	GetSnapshot(ctx context.Context, day time.Time) ([]domain.StockSummaryRow, error)
	// LatestSnapshotBefore returns the most recent snapshot strictly before day.
	LatestSnapshotBefore(ctx context.Context, day time.Time) (time.Time, []domain.StockSummaryRow, error)
	ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error)
}

// CatalogRepository stores the brand -> model reference list.
type CatalogRepository interface {
	ListBrands(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context, brand string) ([]domain.CatalogModel, error)
	// AddModel inserts the pair; created is false when it already existed.
	AddModel(ctx context.Context, brand, model string) (entry domain.CatalogModel, created bool, err error)
}
