package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vanchoco/backend-go/internal/config"
	"github.com/vanchoco/backend-go/internal/domain"
)

const (
	reportKeyPrefix     = "reports"
	reportScanBatchSize = 100

	kindConsolidated = "consolidated"
	kindDaily        = "daily"
	kindStock        = "stock"
)

// ReportCache stores unfiltered report payloads. Search filtering is applied
// by callers after a hit so that every search shares one entry.
type ReportCache interface {
	GetConsolidations(ctx context.Context) ([]domain.ClientConsolidation, bool, error)
	SetConsolidations(ctx context.Context, groups []domain.ClientConsolidation) error
	GetDailyReport(ctx context.Context, day string) (*domain.DailyReport, bool, error)
	SetDailyReport(ctx context.Context, day string, report *domain.DailyReport) error
	GetStockSummary(ctx context.Context) ([]domain.StockSummaryRow, bool, error)
	SetStockSummary(ctx context.Context, rows []domain.StockSummaryRow) error
	InvalidateDaily(ctx context.Context, day string) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetConsolidations(ctx context.Context) ([]domain.ClientConsolidation, bool, error) {
	var groups []domain.ClientConsolidation
	ok, err := getJSON(ctx, c.client, buildReportKey(kindConsolidated), &groups)
	return groups, ok, err
}

func (c *redisReportCache) SetConsolidations(ctx context.Context, groups []domain.ClientConsolidation) error {
	return setJSON(ctx, c.client, buildReportKey(kindConsolidated), groups, c.ttl)
}

func (c *redisReportCache) GetDailyReport(ctx context.Context, day string) (*domain.DailyReport, bool, error) {
	var report domain.DailyReport
	ok, err := getJSON(ctx, c.client, buildReportKey(kindDaily, "date="+day), &report)
	if !ok || err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *redisReportCache) SetDailyReport(ctx context.Context, day string, report *domain.DailyReport) error {
	return setJSON(ctx, c.client, buildReportKey(kindDaily, "date="+day), report, c.ttl)
}

func (c *redisReportCache) GetStockSummary(ctx context.Context) ([]domain.StockSummaryRow, bool, error) {
	var rows []domain.StockSummaryRow
	ok, err := getJSON(ctx, c.client, buildReportKey(kindStock), &rows)
	return rows, ok, err
}

func (c *redisReportCache) SetStockSummary(ctx context.Context, rows []domain.StockSummaryRow) error {
	return setJSON(ctx, c.client, buildReportKey(kindStock), rows, c.ttl)
}

func (c *redisReportCache) InvalidateDaily(ctx context.Context, day string) error {
	return c.client.Del(ctx, buildReportKey(kindDaily, "date="+day)).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix+":", reportScanBatchSize)
}

func (n *noopReportCache) GetConsolidations(ctx context.Context) ([]domain.ClientConsolidation, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetConsolidations(ctx context.Context, groups []domain.ClientConsolidation) error {
	return nil
}

func (n *noopReportCache) GetDailyReport(ctx context.Context, day string) (*domain.DailyReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetDailyReport(ctx context.Context, day string, report *domain.DailyReport) error {
	return nil
}

func (n *noopReportCache) GetStockSummary(ctx context.Context) ([]domain.StockSummaryRow, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetStockSummary(ctx context.Context, rows []domain.StockSummaryRow) error {
	return nil
}

func (n *noopReportCache) InvalidateDaily(ctx context.Context, day string) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(kind string, parts ...string) string {
	return fmt.Sprintf("%s:%s:%s", reportKeyPrefix, kind, partsHash(parts))
}

func partsHash(parts []string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}

	if len(normalized) == 0 {
		return "default"
	}

	sort.Strings(normalized)
	sum := sha1.Sum([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}
