package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vanchoco/backend-go/internal/backend"
	"github.com/vanchoco/backend-go/internal/cache"
	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/export"
	"github.com/vanchoco/backend-go/internal/reconcile"
	"github.com/vanchoco/backend-go/internal/repository"
	"github.com/vanchoco/backend-go/internal/storage"
)

const dayLayout = "2006-01-02"

var (
	ErrSaleNotFound  = errors.New("sale not found")
	ErrClientMissing = errors.New("client name is required")
	ErrNoStorage     = errors.New("no object storage configured")
)

// SalesBackend is the subset of the backend client the reports read from.
type SalesBackend interface {
	ListSales(ctx context.Context) ([]domain.Sale, error)
	StockSummary(ctx context.Context) ([]domain.StockSummaryRow, error)
	DailyComparison(ctx context.Context) ([]domain.DailyMovementRow, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ConsolidatedInvoicePDF(ctx context.Context, clientName string) ([]byte, error)
}

// ExportResult is a rendered report, plus its object key when it was uploaded.
type ExportResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ObjectKey   string `json:"object_key,omitempty"`
	Data        []byte `json:"-"`
}

type ReportService struct {
	backend   SalesBackend
	snapshots repository.SnapshotRepository
	cache     cache.ReportCache
	store     storage.ObjectStorage
	prefix    string
	loc       *time.Location
	now       func() time.Time
}

func NewReportService(
	backendClient SalesBackend,
	snapshots repository.SnapshotRepository,
	cacheImpl cache.ReportCache,
	store storage.ObjectStorage,
	storagePrefix string,
	loc *time.Location,
) *ReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		backend:   backendClient,
		snapshots: snapshots,
		cache:     cacheImpl,
		store:     store,
		prefix:    storagePrefix,
		loc:       loc,
		now:       time.Now,
	}
}

// Location is the timezone days are cut in.
func (s *ReportService) Location() *time.Location { return s.loc }

// Today returns midnight of the current day in the report timezone.
func (s *ReportService) Today() time.Time {
	return startOfDay(s.now(), s.loc)
}

// ParseDay parses YYYY-MM-DD in the report timezone; an empty value means today.
func (s *ReportService) ParseDay(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.Today(), nil
	}
	day, err := time.ParseInLocation(dayLayout, v, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return day, nil
}

// SalesHistory returns every sold item with its label and the actions allowed on it.
func (s *ReportService) SalesHistory(ctx context.Context, search string) ([]domain.SaleHistoryRow, error) {
	sales, err := s.backend.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	rows := reconcile.SearchHistory(reconcile.History(sales, s.now()), search)
	if rows == nil {
		rows = make([]domain.SaleHistoryRow, 0)
	}
	return rows, nil
}

// ConsolidatedInvoices groups the outstanding retail items per client.
func (s *ReportService) ConsolidatedInvoices(ctx context.Context, search string) ([]domain.ClientConsolidation, error) {
	groups, ok, err := s.cache.GetConsolidations(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reports: cache get consolidations failed")
	}

	if !ok {
		sales, err := s.backend.ListSales(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sales: %w", err)
		}
		groups = reconcile.Consolidate(sales)

		if err := s.cache.SetConsolidations(ctx, groups); err != nil {
			log.Warn().Err(err).Msg("reports: cache set consolidations failed")
		}
	}

	groups = reconcile.FilterConsolidations(groups, search)
	if groups == nil {
		groups = make([]domain.ClientConsolidation, 0)
	}
	return groups, nil
}

// InvoicePDF fetches the backend's consolidated invoice for a client.
func (s *ReportService) InvoicePDF(ctx context.Context, clientName string) ([]byte, error) {
	if strings.TrimSpace(clientName) == "" {
		return nil, ErrClientMissing
	}
	return s.backend.ConsolidatedInvoicePDF(ctx, clientName)
}

// StockSummary returns the live stock on hand per product key.
func (s *ReportService) StockSummary(ctx context.Context, search string) ([]domain.StockSummaryRow, error) {
	rows, ok, err := s.cache.GetStockSummary(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reports: cache get stock summary failed")
	}

	if !ok {
		rows, err = s.backend.StockSummary(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stock summary: %w", err)
		}
		if err := s.cache.SetStockSummary(ctx, rows); err != nil {
			log.Warn().Err(err).Msg("reports: cache set stock summary failed")
		}
	}

	rows = reconcile.SearchStock(rows, search)
	if rows == nil {
		rows = make([]domain.StockSummaryRow, 0)
	}
	return rows, nil
}

// DailyMovement returns the stock comparison of day. For the current day a
// comparison computed by the backend wins; otherwise it is built from the
// previous stored snapshot, the day's stock and the day's movements.
func (s *ReportService) DailyMovement(ctx context.Context, day time.Time, search string) (*domain.DailyReport, error) {
	day = startOfDay(day, s.loc)
	key := day.Format(dayLayout)

	report, ok, err := s.cache.GetDailyReport(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("day", key).Msg("reports: cache get daily report failed")
	}

	if !ok {
		report, err = s.buildDailyReport(ctx, day)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetDailyReport(ctx, key, report); err != nil {
			log.Warn().Err(err).Str("day", key).Msg("reports: cache set daily report failed")
		}
	}

	if strings.TrimSpace(search) == "" {
		return report, nil
	}

	rows := reconcile.SearchMovement(report.Rows, search)
	return &domain.DailyReport{
		Date:     report.Date,
		Supplied: report.Supplied,
		Rows:     rows,
		Totals:   reconcile.Totals(rows),
	}, nil
}

func (s *ReportService) buildDailyReport(ctx context.Context, day time.Time) (*domain.DailyReport, error) {
	isToday := day.Equal(s.Today())
	date := day.Format(dayLayout)

	if isToday {
		supplied, err := s.backend.DailyComparison(ctx)
		switch {
		case err == nil && len(supplied) > 0:
			rows := reconcile.AcceptSupplied(supplied)
			return &domain.DailyReport{Date: date, Supplied: true, Rows: rows, Totals: reconcile.Totals(rows)}, nil
		case err != nil && !errors.Is(err, backend.ErrNotFound):
			log.Warn().Err(err).Msg("reports: backend daily comparison failed, computing locally")
		}
	}

	var (
		yesterday []domain.StockSummaryRow
		today     []domain.StockSummaryRow
		sales     []domain.Sale
		products  []domain.Product
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, rows, err := s.snapshots.LatestSnapshotBefore(gctx, day)
		if errors.Is(err, repository.ErrNotFound) {
			log.Info().Str("day", date).Msg("reports: no previous snapshot, starting from zero")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load previous snapshot: %w", err)
		}
		yesterday = rows
		return nil
	})

	g.Go(func() error {
		var err error
		if isToday {
			today, err = s.backend.StockSummary(gctx)
			if err != nil {
				return fmt.Errorf("failed to load stock summary: %w", err)
			}
			return nil
		}
		today, err = s.snapshots.GetSnapshot(gctx, day)
		if errors.Is(err, repository.ErrNotFound) {
			today = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load snapshot of %s: %w", date, err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		sales, err = s.backend.ListSales(gctx)
		if err != nil {
			return fmt.Errorf("failed to load sales: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		products, err = s.backend.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	movements := reconcile.MovementsFromProducts(products, day, s.loc)
	movements = append(movements, reconcile.MovementsFromSales(sales, day, s.loc)...)

	rows := reconcile.CompareDaily(yesterday, today, movements)
	return &domain.DailyReport{
		Date:   date,
		Rows:   rows,
		Totals: reconcile.Totals(rows),
	}, nil
}

// ValidateSaleEdit checks a proposed amount change against the sale as the backend knows it.
func (s *ReportService) ValidateSaleEdit(ctx context.Context, saleID string, newPaid, newTotal decimal.Decimal) (domain.SaleTotals, error) {
	sales, err := s.backend.ListSales(ctx)
	if err != nil {
		return domain.SaleTotals{}, fmt.Errorf("failed to load sales: %w", err)
	}

	for _, sale := range sales {
		if sale.ID != saleID {
			continue
		}
		totals := domain.SaleTotals{
			TotalAmount:  sale.TotalAmount,
			PaidAmount:   sale.PaidAmount,
			PurchaseCost: reconcile.PurchaseCost(sale),
		}
		return totals, reconcile.ValidateSaleEdit(totals, newPaid, newTotal)
	}

	return domain.SaleTotals{}, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
}

// CaptureSnapshot stores the live stock summary as the snapshot of day.
func (s *ReportService) CaptureSnapshot(ctx context.Context, day time.Time) (int, error) {
	rows, err := s.backend.StockSummary(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load stock summary: %w", err)
	}
	if err := s.ImportSnapshot(ctx, day, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportSnapshot stores rows as the snapshot of day and drops cached reports that depend on it.
func (s *ReportService) ImportSnapshot(ctx context.Context, day time.Time, rows []domain.StockSummaryRow) error {
	day = startOfDay(day, s.loc)
	if err := s.snapshots.SaveSnapshot(ctx, day, rows); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	// The next day's report uses this snapshot as its baseline.
	for _, d := range []time.Time{day, day.AddDate(0, 0, 1)} {
		if err := s.cache.InvalidateDaily(ctx, d.Format(dayLayout)); err != nil {
			log.Warn().Err(err).Msg("reports: cache invalidate daily failed")
		}
	}

	log.Info().Str("day", day.Format(dayLayout)).Int("rows", len(rows)).Msg("stock snapshot saved")
	return nil
}

func (s *ReportService) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error) {
	return s.snapshots.ListSnapshots(ctx, limit)
}

// ExportDaily renders the daily report and, when upload is set, stores it in object storage.
func (s *ReportService) ExportDaily(ctx context.Context, day time.Time, format export.Format, upload bool) (*ExportResult, error) {
	report, err := s.DailyMovement(ctx, day, "")
	if err != nil {
		return nil, err
	}

	data, err := export.RenderDaily(*report, format)
	if err != nil {
		return nil, fmt.Errorf("failed to render daily report: %w", err)
	}

	result := &ExportResult{
		Filename:    export.DailyFilename(report.Date, format),
		ContentType: format.ContentType(),
		Data:        data,
	}

	if upload {
		if s.store == nil {
			return nil, ErrNoStorage
		}
		result.ObjectKey = storage.ObjectKey(s.prefix, "daily", result.Filename)
		if err := s.store.UploadObject(ctx, result.ObjectKey, data); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", result.ObjectKey, err)
		}
		log.Info().Str("key", result.ObjectKey).Int("bytes", len(data)).Msg("daily report uploaded")
	}

	return result, nil
}

// ListExports lists previously uploaded daily reports.
func (s *ReportService) ListExports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, ErrNoStorage
	}
	return s.store.ListObjects(ctx, storage.ObjectKey(s.prefix, "daily"))
}

// FetchExport downloads an uploaded report to destPath.
func (s *ReportService) FetchExport(ctx context.Context, key, destPath string) error {
	if s.store == nil {
		return ErrNoStorage
	}
	return s.store.DownloadObject(ctx, key, destPath)
}

// Refresh drops every cached report.
func (s *ReportService) Refresh(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
