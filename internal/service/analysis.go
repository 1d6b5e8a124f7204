package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/analytics"
	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// AnalysisService runs the full analytics pipeline over a dataset:
// enrichment, session clustering, counterparty profiling and risk, collected
// into one named-table report.
type AnalysisService struct {
	params       analytics.Params
	enricher     *analytics.Enricher
	sessions     *analytics.SessionSegmenter
	counterparty *analytics.CounterpartyProfiler
	risk         *analytics.RiskAnalyzer
	log          *zap.Logger
}

func NewAnalysisService(params analytics.Params) (*AnalysisService, error) {
	enricher, err := analytics.NewEnricher(params)
	if err != nil {
		return nil, fmt.Errorf("building enricher: %w", err)
	}
	return &AnalysisService{
		params:       params,
		enricher:     enricher,
		sessions:     analytics.NewSessionSegmenter(params),
		counterparty: analytics.NewCounterpartyProfiler(),
		risk:         analytics.NewRiskAnalyzer(params),
		log:          logger.Named("analysis"),
	}, nil
}

// BuildReport enriches the dataset if needed and assembles every analysis
// table. Tables whose analysis was skipped come out empty, never absent.
func (s *AnalysisService) BuildReport(ds *domain.Dataset) *domain.Report {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReportBuildDuration)

	enriched := s.enricher.Enrich(ds)
	s.log.Info("dataset enriched",
		zap.Int("records", len(enriched.Records)),
		zap.Int("dropped_rows", enriched.DroppedRows))

	report := domain.Report{}

	sessions := s.sessions.Analyze(enriched)
	report["session_stats"] = domain.SessionStatsTable(sessions.Stats)
	report["session_patterns"] = domain.SessionPatternsTable(sessions.Patterns)
	report["session_efficiency"] = domain.SessionEfficiencyTable(sessions.Efficiency)
	report["session_temporal_distribution"] = domain.SessionHourTable(sessions.HourBuckets)
	report["counterparty_sessions"] = domain.CounterpartySessionsTable(sessions.Counterparties)

	profile := s.counterparty.Analyze(enriched)
	report["general_stats"] = domain.GeneralStatsTable(profile.GeneralStats)
	report["temporal_evolution"] = domain.TemporalEvolutionTable(profile.TemporalEvolution)
	report["payment_preferences"] = domain.PaymentPreferencesTable(profile.PaymentPreferences)
	report["trading_patterns"] = domain.TradingPatternsTable(profile.TradingPatterns)
	report["vip_counterparties"] = domain.VIPTable(profile.VIPStats)
	report["efficiency_stats"] = domain.EfficiencyTable(profile.EfficiencyStats)

	risk := s.risk.Analyze(enriched)
	for fiat, summary := range risk.Summaries {
		key := strings.ToLower(fiat)
		report["risk_"+key+"_summary"] = domain.RiskSummaryTable(summary)
		report["risk_"+key+"_daily_returns"] = domain.DailyReturnsTable(risk.Returns[fiat])
	}
	for _, fiat := range []string{"USD", "UYU"} {
		key := strings.ToLower(fiat)
		if _, ok := report["risk_"+key+"_summary"]; !ok {
			report["risk_"+key+"_summary"] = domain.RiskSummaryTable(domain.RiskSummary{Fiat: fiat})
			report["risk_"+key+"_daily_returns"] = domain.DailyReturnsTable(nil)
		}
	}

	metrics.ReportBuilds.WithLabelValues("success").Inc()
	s.log.Info("report built",
		zap.Int("tables", len(report)),
		zap.Duration("elapsed", timer.Elapsed()))
	return &report
}
