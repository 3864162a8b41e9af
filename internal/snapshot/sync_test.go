package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/storage"
)

type recordingImporter struct {
	days map[string][]domain.StockSummaryRow
}

func (r *recordingImporter) ImportSnapshot(ctx context.Context, day time.Time, rows []domain.StockSummaryRow) error {
	r.days[day.Format("2006-01-02")] = rows
	return nil
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	csv := []byte("marque,modele,quantite\nApple,iPhone 12,3\n")
	require.NoError(t, store.UploadObject(ctx, "snapshots/stock_2026-03-13.csv", csv))
	require.NoError(t, store.UploadObject(ctx, "snapshots/stock.csv", csv))
	require.NoError(t, store.UploadObject(ctx, "snapshots/notes.txt", []byte("hello")))
	require.NoError(t, store.UploadObject(ctx, "snapshots/stock_2026-03-12.csv", []byte("nothing useful\n")))

	importer := &recordingImporter{days: map[string][]domain.StockSummaryRow{}}
	result, err := Sync(ctx, store, importer, SyncOptions{Prefix: "snapshots", DownloadDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, []string{"snapshots/stock_2026-03-13.csv"}, result.Imported)
	assert.Len(t, result.Skipped, 2)
	require.Contains(t, importer.days, "2026-03-13")
	assert.Equal(t, 3, importer.days["2026-03-13"][0].Quantity)
}

func TestSyncRequiresDownloadDir(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = Sync(context.Background(), store, &recordingImporter{}, SyncOptions{})
	assert.Error(t, err)
}
