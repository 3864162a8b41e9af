package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanchoco/backend-go/internal/backend"
	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/export"
	"github.com/vanchoco/backend-go/internal/reconcile"
	"github.com/vanchoco/backend-go/internal/repository"
	"github.com/vanchoco/backend-go/internal/storage"
)

type fakeBackend struct {
	sales      []domain.Sale
	stock      []domain.StockSummaryRow
	daily      []domain.DailyMovementRow
	dailyErr   error
	products   []domain.Product
	salesErr   error
	salesCalls atomic.Int32
}

func (f *fakeBackend) ListSales(ctx context.Context) ([]domain.Sale, error) {
	f.salesCalls.Add(1)
	return f.sales, f.salesErr
}

func (f *fakeBackend) StockSummary(ctx context.Context) ([]domain.StockSummaryRow, error) {
	return f.stock, nil
}

func (f *fakeBackend) DailyComparison(ctx context.Context) ([]domain.DailyMovementRow, error) {
	return f.daily, f.dailyErr
}

func (f *fakeBackend) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakeBackend) ConsolidatedInvoicePDF(ctx context.Context, clientName string) ([]byte, error) {
	return []byte("%PDF " + clientName), nil
}

type fakeSnapshots struct {
	mu   sync.Mutex
	days map[string][]domain.StockSummaryRow
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{days: make(map[string][]domain.StockSummaryRow)}
}

func (f *fakeSnapshots) SaveSnapshot(ctx context.Context, day time.Time, rows []domain.StockSummaryRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days[day.Format(dayLayout)] = rows
	return nil
}

func (f *fakeSnapshots) GetSnapshot(ctx context.Context, day time.Time) ([]domain.StockSummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.days[day.Format(dayLayout)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rows, nil
}

func (f *fakeSnapshots) LatestSnapshotBefore(ctx context.Context, day time.Time) (time.Time, []domain.StockSummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best string
	for d := range f.days {
		if d < day.Format(dayLayout) && d > best {
			best = d
		}
	}
	if best == "" {
		return time.Time{}, nil, repository.ErrNotFound
	}
	t, _ := time.Parse(dayLayout, best)
	return t, f.days[best], nil
}

func (f *fakeSnapshots) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotInfo, error) {
	return nil, nil
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

func (m *memoryStore) DownloadObject(ctx context.Context, key string, destPath string) error {
	return errors.New("not implemented")
}

func (m *memoryStore) UploadObject(ctx context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

var (
	iphone  = domain.NewProductKey("Apple", "iPhone 12", "64Go", "CARTON", "GW")
	march14 = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
)

func newTestService(b *fakeBackend, snaps *fakeSnapshots, store storage.ObjectStorage) *ReportService {
	svc := NewReportService(b, snaps, nil, store, "exports", time.UTC)
	svc.now = func() time.Time { return march14.Add(15 * time.Hour) }
	return svc
}

func soldOn(day time.Time, status domain.SaleStatus) domain.Sale {
	return domain.Sale{
		ID:          "v1",
		Date:        day.Add(10 * time.Hour),
		ClientName:  "Awa",
		TotalAmount: decimal.NewFromInt(150000),
		PaidAmount:  decimal.NewFromInt(50000),
		LineItems: []domain.SaleLineItem{
			{
				ItemID:            "1",
				Brand:             iphone.Brand,
				Model:             iphone.Model,
				Storage:           iphone.Storage,
				DeviceType:        iphone.DeviceType,
				CartonType:        iphone.CartonType,
				QuantitySold:      3,
				UnitSalePrice:     decimal.NewFromInt(100000),
				UnitPurchasePrice: decimal.NewFromInt(80000),
				Status:            status,
			},
		},
	}
}

func TestDailyMovementDerivesFromSnapshotAndMovements(t *testing.T) {
	added := march14.Add(9 * time.Hour)
	b := &fakeBackend{
		dailyErr: &backend.StatusError{StatusCode: 404},
		sales:    []domain.Sale{soldOn(march14, domain.SaleStatusActive)},
		products: []domain.Product{{
			Brand: iphone.Brand, Model: iphone.Model, Storage: iphone.Storage,
			DeviceType: iphone.DeviceType, CartonType: iphone.CartonType,
			Quantity: 5, AddedAt: &added,
		}},
	}
	snaps := newFakeSnapshots()
	require.NoError(t, snaps.SaveSnapshot(context.Background(), march14.AddDate(0, 0, -1), []domain.StockSummaryRow{{ProductKey: iphone, Quantity: 10}}))

	svc := newTestService(b, snaps, nil)
	report, err := svc.DailyMovement(context.Background(), march14, "")
	require.NoError(t, err)

	assert.False(t, report.Supplied)
	assert.Equal(t, "2026-03-14", report.Date)
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, 10, row.StockYesterday)
	assert.Equal(t, 5, row.AddedToday)
	assert.Equal(t, 3, row.SoldToday)
	assert.Equal(t, 12, row.StockToday)
	assert.True(t, row.Derived)
	require.Len(t, report.Totals, 1)
	assert.Equal(t, 12, report.Totals[0].StockToday)
}

func TestDailyMovementEmptySnapshotIsTheBaseline(t *testing.T) {
	added := march14.Add(9 * time.Hour)
	b := &fakeBackend{
		dailyErr: &backend.StatusError{StatusCode: 404},
		products: []domain.Product{{
			Brand: iphone.Brand, Model: iphone.Model, Storage: iphone.Storage,
			DeviceType: iphone.DeviceType, CartonType: iphone.CartonType,
			Quantity: 5, AddedAt: &added,
		}},
	}
	snaps := newFakeSnapshots()
	ctx := context.Background()
	require.NoError(t, snaps.SaveSnapshot(ctx, march14.AddDate(0, 0, -2), []domain.StockSummaryRow{{ProductKey: iphone, Quantity: 10}}))
	require.NoError(t, snaps.SaveSnapshot(ctx, march14.AddDate(0, 0, -1), []domain.StockSummaryRow{}))

	report, err := newTestService(b, snaps, nil).DailyMovement(ctx, march14, "")
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 0, report.Rows[0].StockYesterday)
	assert.Equal(t, 5, report.Rows[0].StockToday)
}

func TestDailyMovementPrefersSuppliedRows(t *testing.T) {
	b := &fakeBackend{
		daily: []domain.DailyMovementRow{{ProductKey: iphone, StockYesterday: 4, SoldToday: 1, StockToday: 2}},
	}
	svc := newTestService(b, newFakeSnapshots(), nil)

	report, err := svc.DailyMovement(context.Background(), march14, "")
	require.NoError(t, err)
	assert.True(t, report.Supplied)
	require.Len(t, report.Rows, 1)
	// Supplied figures are never recomputed
	assert.Equal(t, 2, report.Rows[0].StockToday)
	assert.Equal(t, domain.StockLow, report.Rows[0].Status)
	assert.Zero(t, b.salesCalls.Load())
}

func TestDailyMovementPastDayUsesStoredSnapshot(t *testing.T) {
	b := &fakeBackend{daily: []domain.DailyMovementRow{{ProductKey: iphone, StockToday: 99}}}
	snaps := newFakeSnapshots()
	ctx := context.Background()
	day := march14.AddDate(0, 0, -2)
	require.NoError(t, snaps.SaveSnapshot(ctx, day.AddDate(0, 0, -1), []domain.StockSummaryRow{{ProductKey: iphone, Quantity: 8}}))
	require.NoError(t, snaps.SaveSnapshot(ctx, day, []domain.StockSummaryRow{{ProductKey: iphone, Quantity: 6}}))

	report, err := newTestService(b, snaps, nil).DailyMovement(ctx, day, "")
	require.NoError(t, err)
	assert.False(t, report.Supplied)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 8, report.Rows[0].StockYesterday)
	assert.Equal(t, 6, report.Rows[0].StockToday)
	assert.False(t, report.Rows[0].Derived)
}

func TestDailyMovementSearchRecomputesTotals(t *testing.T) {
	tecno := domain.NewProductKey("Tecno", "Spark 10", "128Go", "CARTON", "")
	b := &fakeBackend{daily: []domain.DailyMovementRow{
		{ProductKey: iphone, StockToday: 10},
		{ProductKey: tecno, StockToday: 3},
	}}

	report, err := newTestService(b, newFakeSnapshots(), nil).DailyMovement(context.Background(), march14, "spark")
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	require.Len(t, report.Totals, 1)
	assert.Equal(t, 3, report.Totals[0].StockToday)
}

func TestConsolidatedInvoicesAndHistory(t *testing.T) {
	b := &fakeBackend{sales: []domain.Sale{soldOn(march14, domain.SaleStatusActive)}}
	svc := newTestService(b, newFakeSnapshots(), nil)
	ctx := context.Background()

	groups, err := svc.ConsolidatedInvoices(ctx, "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Awa", groups[0].ClientName)

	groups, err = svc.ConsolidatedInvoices(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, groups)

	rows, err := svc.SalesHistory(ctx, "iphone")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Actions.Cancel)
	assert.Equal(t, domain.LabelInProgress, rows[0].Label)
}

func TestSalesHistoryPropagatesBackendError(t *testing.T) {
	b := &fakeBackend{salesErr: errors.New("boom")}
	_, err := newTestService(b, newFakeSnapshots(), nil).SalesHistory(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateSaleEdit(t *testing.T) {
	b := &fakeBackend{sales: []domain.Sale{soldOn(march14, domain.SaleStatusActive)}}
	svc := newTestService(b, newFakeSnapshots(), nil)
	ctx := context.Background()

	totals, err := svc.ValidateSaleEdit(ctx, "v1", decimal.NewFromInt(60000), decimal.NewFromInt(150000))
	require.NoError(t, err)
	assert.True(t, totals.PurchaseCost.Equal(decimal.NewFromInt(80000)))

	_, err = svc.ValidateSaleEdit(ctx, "v1", decimal.NewFromInt(60000), decimal.NewFromInt(70000))
	var editErr *reconcile.EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, reconcile.RuleBelowCost, editErr.Rule)

	_, err = svc.ValidateSaleEdit(ctx, "missing", decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestCaptureSnapshotAndExport(t *testing.T) {
	b := &fakeBackend{stock: []domain.StockSummaryRow{{ProductKey: iphone, Quantity: 7}}}
	snaps := newFakeSnapshots()
	store := &memoryStore{objects: map[string][]byte{}}
	svc := newTestService(b, snaps, store)
	ctx := context.Background()

	n, err := svc.CaptureSnapshot(ctx, march14.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	result, err := svc.ExportDaily(ctx, march14, export.FormatCSV, true)
	require.NoError(t, err)
	assert.Equal(t, "mouvements_2026-03-14.csv", result.Filename)
	assert.Equal(t, "exports/daily/mouvements_2026-03-14.csv", result.ObjectKey)
	assert.Contains(t, string(store.objects[result.ObjectKey]), "iPhone 12")

	_, err = newTestService(b, snaps, nil).ExportDaily(ctx, march14, export.FormatCSV, true)
	assert.ErrorIs(t, err, ErrNoStorage)
}

func TestInvoicePDFRequiresClient(t *testing.T) {
	svc := newTestService(&fakeBackend{}, newFakeSnapshots(), nil)
	_, err := svc.InvoicePDF(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrClientMissing)

	pdf, err := svc.InvoicePDF(context.Background(), "Awa")
	require.NoError(t, err)
	assert.Equal(t, "%PDF Awa", string(pdf))
}

func TestParseDay(t *testing.T) {
	svc := newTestService(&fakeBackend{}, newFakeSnapshots(), nil)

	day, err := svc.ParseDay("")
	require.NoError(t, err)
	assert.Equal(t, march14, day)

	day, err = svc.ParseDay("2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, 1, day.Day())

	_, err = svc.ParseDay("01/02/2026")
	assert.Error(t, err)
}
