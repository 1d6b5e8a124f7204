package analytics

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// riskFiats are the fiat legs a risk series is built for.
var riskFiats = []string{"USD", "UYU"}

// RiskAnalyzer turns per-day average prices into return series and tail-risk
// figures (historical VaR/CVaR plus an annualized Sharpe ratio).
type RiskAnalyzer struct {
	params Params
	log    *zap.Logger
}

func NewRiskAnalyzer(params Params) *RiskAnalyzer {
	return &RiskAnalyzer{params: params, log: logger.Named("risk")}
}

// RiskResult holds one summary and one daily-return series per fiat, keyed
// by the lowercase fiat code.
type RiskResult struct {
	Summaries map[string]domain.RiskSummary
	Returns   map[string][]domain.DailyReturn
}

func (r *RiskAnalyzer) Analyze(ds *domain.Dataset) RiskResult {
	result := RiskResult{
		Summaries: make(map[string]domain.RiskSummary),
		Returns:   make(map[string][]domain.DailyReturn),
	}

	missing := ds.Columns.Missing(domain.ColMatchTimeLocal, domain.ColPriceNum, domain.ColFiatType)
	if len(missing) > 0 {
		r.log.Warn("risk analysis skipped, columns missing",
			zap.Strings("columns", domain.ColumnNames(missing)))
		metrics.RecordSkippedAnalysis("risk")
		return result
	}

	for _, fiat := range riskFiats {
		daily := r.dailyReturns(ds, fiat)
		result.Returns[fiat] = daily
		result.Summaries[fiat] = r.summarize(fiat, daily)
	}
	return result
}

// dailyReturns averages the price per local calendar day for one fiat and
// chains simple returns over the resulting series. The first day carries a
// nil return.
func (r *RiskAnalyzer) dailyReturns(ds *domain.Dataset, fiat string) []domain.DailyReturn {
	type acc struct {
		sum   float64
		count int
	}
	byDay := make(map[string]*acc)
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.FiatType != fiat || rec.MatchTimeLocal == nil || rec.PriceNum == nil {
			continue
		}
		day := rec.MatchTimeLocal.Format("2006-01-02")
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		a.sum += *rec.PriceNum
		a.count++
	}
	if len(byDay) == 0 {
		return nil
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	series := make([]domain.DailyReturn, 0, len(days))
	for i, day := range days {
		a := byDay[day]
		point := domain.DailyReturn{Date: day, Price: a.sum / float64(a.count)}
		if i > 0 {
			prev := series[i-1].Price
			if prev != 0 {
				point.Return = floatPtr(point.Price/prev - 1)
			}
		}
		series = append(series, point)
	}
	return series
}

func (r *RiskAnalyzer) summarize(fiat string, daily []domain.DailyReturn) domain.RiskSummary {
	summary := domain.RiskSummary{Fiat: fiat, Days: len(daily)}

	var returns []float64
	for _, point := range daily {
		if point.Return != nil {
			returns = append(returns, *point.Return)
		}
	}
	if len(returns) == 0 {
		r.log.Warn("no return observations for fiat", zap.String("fiat", fiat))
		return summary
	}

	if m, ok := mean(returns); ok {
		summary.MeanReturn = floatPtr(m)
	}
	if s, ok := stddev(returns); ok {
		summary.StdReturn = floatPtr(s)
	}
	for _, confidence := range r.params.ConfidenceLevels {
		varValue, cvarValue := valueAtRisk(returns, confidence)
		summary.Tails = append(summary.Tails, domain.TailRisk{
			Confidence: confidence,
			VaR:        varValue,
			CVaR:       cvarValue,
		})
	}
	summary.Sharpe = r.sharpeRatio(returns)
	return summary
}

// valueAtRisk computes the historical VaR at the given confidence level as
// the (1-confidence) quantile of the return distribution, and CVaR as the
// mean of the returns at or below it. With an empty tail CVaR degrades to
// the VaR itself.
func valueAtRisk(returns []float64, confidence float64) (*float64, *float64) {
	v, ok := quantile(returns, 1-confidence)
	if !ok {
		return nil, nil
	}

	var tail []float64
	for _, ret := range returns {
		if ret <= v {
			tail = append(tail, ret)
		}
	}
	cvar := v
	if m, ok := mean(tail); ok {
		cvar = m
	}
	return floatPtr(v), floatPtr(cvar)
}

// sharpeRatio annualizes the mean excess daily return over its volatility.
// The annual risk-free rate is de-annualized geometrically before
// subtraction. Returns nil when volatility is undefined or zero.
func (r *RiskAnalyzer) sharpeRatio(returns []float64) *float64 {
	m, ok := mean(returns)
	if !ok {
		return nil
	}
	s, ok := stddev(returns)
	if !ok || s == 0 {
		return nil
	}

	periods := float64(r.params.PeriodsPerYear)
	dailyRF := math.Pow(1+r.params.RiskFreeRateAnnual, 1/periods) - 1
	sharpe := (m - dailyRF) / s * math.Sqrt(periods)
	return &sharpe
}
