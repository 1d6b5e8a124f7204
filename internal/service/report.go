package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// ReportService serves analytics reports for ledger slices, with a redis
// cache in front of the full pipeline run. A nil redis client disables
// caching without disabling the service.
type ReportService struct {
	trades      *TradeService
	analysis    *AnalysisService
	redisClient *redis.Client
	cacheTTL    time.Duration
	log         *zap.Logger
}

func NewReportService(trades *TradeService, analysis *AnalysisService,
	redisClient *redis.Client, cacheTTL time.Duration) *ReportService {

	return &ReportService{
		trades:      trades,
		analysis:    analysis,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		log:         logger.Named("report"),
	}
}

func (s *ReportService) GetReport(ctx context.Context, filter domain.TradeFilter) (*domain.Report, error) {
	cacheKey := s.generateCacheKey(filter)

	if cached := s.getFromCache(ctx, cacheKey); cached != nil {
		metrics.RecordCacheHit()
		return cached, nil
	}
	metrics.RecordCacheMiss()

	ds, err := s.trades.GetTrades(ctx, filter)
	if err != nil {
		metrics.ReportBuilds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetching trades for report: %w", err)
	}

	report := s.analysis.BuildReport(ds)

	if err := s.saveToCache(ctx, cacheKey, report); err != nil {
		s.log.Warn("report cache write failed", zap.Error(err))
	}

	return report, nil
}

// generateCacheKey folds the filter and the analysis parameters into the
// key, so a parameter change never serves stale tables.
func (s *ReportService) generateCacheKey(filter domain.TradeFilter) string {
	start, end := "all", "all"
	if filter.StartDate != nil {
		start = filter.StartDate.Format("2006-01-02")
	}
	if filter.EndDate != nil {
		end = filter.EndDate.Format("2006-01-02")
	}
	p := s.analysis.params
	return fmt.Sprintf("report:%s:%s:%s:%s:%s:g%d:%s",
		filter.FiatType, filter.AssetType, filter.Status, start, end,
		p.SessionGapMinutes, p.LocalTimezone)
}

func (s *ReportService) getFromCache(ctx context.Context, key string) *domain.Report {
	if s.redisClient == nil {
		return nil
	}

	val, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var report domain.Report
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		s.log.Warn("discarding undecodable cached report", zap.Error(err))
		return nil
	}
	return &report
}

func (s *ReportService) saveToCache(ctx context.Context, key string, report *domain.Report) error {
	if s.redisClient == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, key, data, s.cacheTTL).Err()
}

// InvalidateReports drops every cached report, typically after new trades
// are loaded.
func (s *ReportService) InvalidateReports(ctx context.Context) error {
	if s.redisClient == nil {
		return nil
	}

	iter := s.redisClient.Scan(ctx, 0, "report:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return s.redisClient.Del(ctx, keys...).Err()
	}
	return nil
}
