package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/storage"
)

// Importer stores the rows of one day.
type Importer interface {
	ImportSnapshot(ctx context.Context, day time.Time, rows []domain.StockSummaryRow) error
}

// SyncOptions controls which stored files are pulled and where they land.
type SyncOptions struct {
	Prefix      string
	DownloadDir string
	Location    *time.Location
}

// SyncResult reports what a sync imported.
type SyncResult struct {
	Imported []string
	Skipped  []string
}

// Sync downloads every .csv and .xlsx object under opts.Prefix whose name
// carries a date and imports it as that day's snapshot. Files without a date
// in their name are skipped.
func Sync(ctx context.Context, store storage.ObjectStorage, importer Importer, opts SyncOptions) (SyncResult, error) {
	var result SyncResult

	if opts.DownloadDir == "" {
		return result, fmt.Errorf("download dir is required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create download dir: %w", err)
	}

	objects, err := store.ListObjects(ctx, opts.Prefix)
	if err != nil {
		return result, err
	}

	for _, obj := range objects {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		ext := strings.ToLower(filepath.Ext(obj.Key))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		day, ok := DateFromFilename(obj.Key, opts.Location)
		if !ok {
			log.Warn().Str("key", obj.Key).Msg("snapshot file has no date in its name, skipping")
			result.Skipped = append(result.Skipped, obj.Key)
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, filepath.Base(obj.Key))
		if err := store.DownloadObject(ctx, obj.Key, localPath); err != nil {
			return result, fmt.Errorf("failed to download %s: %w", obj.Key, err)
		}

		rows, stats, err := ReadFile(localPath)
		// Best-effort remove the local copy
		_ = os.Remove(localPath)
		if err != nil {
			log.Warn().Err(err).Str("key", obj.Key).Msg("unreadable snapshot file, skipping")
			result.Skipped = append(result.Skipped, obj.Key)
			continue
		}

		if err := importer.ImportSnapshot(ctx, day, rows); err != nil {
			return result, fmt.Errorf("failed to import %s: %w", obj.Key, err)
		}

		log.Info().
			Str("key", obj.Key).
			Str("day", day.Format("2006-01-02")).
			Int("rows", stats.Rows).
			Int("skipped_rows", stats.Skipped).
			Msg("snapshot file imported")
		result.Imported = append(result.Imported, obj.Key)
	}

	return result, nil
}
