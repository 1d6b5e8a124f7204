package analytics

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// CounterpartyProfiler aggregates enriched records into per-counterparty
// behavioral tables. Every sub-analysis declares its own required columns
// and is skipped independently, so a sparse export still yields whatever
// can be computed.
type CounterpartyProfiler struct {
	log *zap.Logger
}

func NewCounterpartyProfiler() *CounterpartyProfiler {
	return &CounterpartyProfiler{log: logger.Named("counterparty")}
}

// CounterpartyResult bundles the counterparty tables; any slice may be
// empty.
type CounterpartyResult struct {
	GeneralStats       []domain.CounterpartyStat
	TemporalEvolution  []domain.MonthlyActivity
	PaymentPreferences []domain.PaymentPreference
	TradingPatterns    []domain.TradingPattern
	VIPStats           []domain.VIPStat
	EfficiencyStats    []domain.EfficiencyStat
}

func (p *CounterpartyProfiler) Analyze(ds *domain.Dataset) CounterpartyResult {
	if !ds.Columns.Has(domain.ColCounterparty) {
		p.log.Warn("counterparty analysis skipped, counterparty column missing")
		metrics.RecordSkippedAnalysis("counterparty")
		return CounterpartyResult{}
	}

	groups := groupByCounterparty(ds)
	if len(groups) == 0 {
		p.log.Warn("no valid counterparties to analyze")
		return CounterpartyResult{}
	}
	p.log.Info("analyzing counterparties", zap.Int("counterparties", len(groups)))

	var result CounterpartyResult
	result.GeneralStats = p.generalStats(ds, groups)
	result.TemporalEvolution = p.temporalEvolution(ds, groups)
	result.PaymentPreferences = p.paymentPreferences(ds, groups)
	result.TradingPatterns = p.tradingPatterns(ds, groups)
	result.VIPStats = p.vipStats(result.GeneralStats)
	result.EfficiencyStats = p.efficiencyStats(ds, groups)
	return result
}

type counterpartyGroup struct {
	name    string
	records []*domain.EnrichedRecord
}

// groupByCounterparty filters to non-blank counterparty identifiers and
// returns the groups in a deterministic (name-sorted) order.
func groupByCounterparty(ds *domain.Dataset) []counterpartyGroup {
	byName := make(map[string][]*domain.EnrichedRecord)
	for i := range ds.Records {
		rec := &ds.Records[i]
		if !rec.HasCounterparty() {
			continue
		}
		byName[rec.Counterparty] = append(byName[rec.Counterparty], rec)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]counterpartyGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, counterpartyGroup{name: name, records: byName[name]})
	}
	return groups
}

func (p *CounterpartyProfiler) skip(name string, ds *domain.Dataset, required ...domain.Column) bool {
	missing := ds.Columns.Missing(required...)
	if len(missing) == 0 {
		return false
	}
	p.log.Warn("sub-analysis skipped, columns missing",
		zap.String("analysis", name),
		zap.Strings("columns", domain.ColumnNames(missing)))
	metrics.RecordSkippedAnalysis(name)
	return true
}

func (p *CounterpartyProfiler) generalStats(ds *domain.Dataset, groups []counterpartyGroup) []domain.CounterpartyStat {
	if p.skip("general_stats", ds,
		domain.ColTotalPriceNum, domain.ColPriceNum, domain.ColQuantityNum,
		domain.ColMatchTimeLocal, domain.ColPaymentMethod, domain.ColOrderType) {
		return nil
	}

	stats := make([]domain.CounterpartyStat, 0, len(groups))
	for _, g := range groups {
		var volumes, prices []float64
		var quantity float64
		payments := make(map[string]struct{})
		orderTypes := make(map[string]struct{})
		var first, last *time.Time

		for _, rec := range g.records {
			if rec.TotalPriceNum != nil {
				volumes = append(volumes, *rec.TotalPriceNum)
			}
			if rec.PriceNum != nil {
				prices = append(prices, *rec.PriceNum)
			}
			if rec.QuantityNum != nil {
				quantity += *rec.QuantityNum
			}
			payments[rec.PaymentMethod] = struct{}{}
			orderTypes[rec.OrderType] = struct{}{}
			if t := rec.MatchTimeLocal; t != nil {
				if first == nil || t.Before(*first) {
					first = t
				}
				if last == nil || t.After(*last) {
					last = t
				}
			}
		}

		stat := domain.CounterpartyStat{
			Counterparty:       g.name,
			TotalOperations:    len(g.records),
			TotalVolume:        sum(volumes),
			TotalQuantity:      quantity,
			PaymentMethodsUsed: len(payments),
			OperationTypes:     len(orderTypes),
		}
		if m, ok := mean(volumes); ok {
			stat.AvgVolumePerOp = m
		}
		if m, ok := median(volumes); ok {
			stat.MedianVolumePerOp = m
		}
		if m, ok := mean(prices); ok {
			stat.AvgPrice = floatPtr(m)
		}
		if s, ok := stddev(prices); ok {
			stat.StdPrice = floatPtr(s)
		}
		if stat.AvgPrice != nil && stat.StdPrice != nil && *stat.AvgPrice != 0 {
			stat.PriceCV = floatPtr(*stat.StdPrice / *stat.AvgPrice)
		}
		if first != nil && last != nil {
			stat.FirstOperation = *first
			stat.LastOperation = *last
			stat.DaysActive = int(last.Sub(*first).Hours() / 24)
		}
		// The +1 smooths daily rates so same-day-only counterparties do not
		// divide by zero.
		days := float64(stat.DaysActive + 1)
		stat.OperationsPerDay = float64(stat.TotalOperations) / days
		stat.VolumePerDay = stat.TotalVolume / days

		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalVolume != stats[j].TotalVolume {
			return stats[i].TotalVolume > stats[j].TotalVolume
		}
		return stats[i].Counterparty < stats[j].Counterparty
	})
	return stats
}

func (p *CounterpartyProfiler) temporalEvolution(ds *domain.Dataset, groups []counterpartyGroup) []domain.MonthlyActivity {
	if p.skip("temporal_evolution", ds,
		domain.ColMatchTimeLocal, domain.ColTotalPriceNum, domain.ColPaymentMethod) {
		return nil
	}

	var rows []domain.MonthlyActivity
	for _, g := range groups {
		byMonth := make(map[string][]*domain.EnrichedRecord)
		for _, rec := range g.records {
			if rec.MatchTimeLocal == nil {
				continue
			}
			byMonth[rec.YearMonth] = append(byMonth[rec.YearMonth], rec)
		}

		months := make([]string, 0, len(byMonth))
		for ym := range byMonth {
			months = append(months, ym)
		}
		sort.Strings(months)

		for _, ym := range months {
			recs := byMonth[ym]
			var volumes []float64
			payments := make(map[string]struct{})
			for _, rec := range recs {
				if rec.TotalPriceNum != nil {
					volumes = append(volumes, *rec.TotalPriceNum)
				}
				payments[rec.PaymentMethod] = struct{}{}
			}
			row := domain.MonthlyActivity{
				Counterparty:          g.name,
				YearMonth:             ym,
				MonthlyOperations:     len(recs),
				MonthlyVolume:         sum(volumes),
				PaymentMethodsMonthly: len(payments),
			}
			if m, ok := mean(volumes); ok {
				row.AvgMonthlyVolume = m
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (p *CounterpartyProfiler) paymentPreferences(ds *domain.Dataset, groups []counterpartyGroup) []domain.PaymentPreference {
	if p.skip("payment_preferences", ds,
		domain.ColPaymentMethod, domain.ColTotalPriceNum) {
		return nil
	}

	var rows []domain.PaymentPreference
	for _, g := range groups {
		byMethod := make(map[string][]*domain.EnrichedRecord)
		for _, rec := range g.records {
			byMethod[rec.PaymentMethod] = append(byMethod[rec.PaymentMethod], rec)
		}

		totalOps := len(g.records)
		var totalVolume float64
		for _, rec := range g.records {
			if rec.TotalPriceNum != nil {
				totalVolume += *rec.TotalPriceNum
			}
		}

		var cpRows []domain.PaymentPreference
		for method, recs := range byMethod {
			var volumes []float64
			for _, rec := range recs {
				if rec.TotalPriceNum != nil {
					volumes = append(volumes, *rec.TotalPriceNum)
				}
			}
			row := domain.PaymentPreference{
				Counterparty:      g.name,
				PaymentMethod:     method,
				OperationsWith:    len(recs),
				VolumeWith:        sum(volumes),
				TotalOperationsCP: totalOps,
				TotalVolumeCP:     totalVolume,
				PctOperations:     float64(len(recs)) / float64(totalOps) * 100,
			}
			if m, ok := mean(volumes); ok {
				row.AvgVolumeWith = m
			}
			if totalVolume > 0 {
				row.PctVolume = row.VolumeWith / totalVolume * 100
			}
			cpRows = append(cpRows, row)
		}

		sort.Slice(cpRows, func(i, j int) bool {
			if cpRows[i].PctOperations != cpRows[j].PctOperations {
				return cpRows[i].PctOperations > cpRows[j].PctOperations
			}
			return cpRows[i].PaymentMethod < cpRows[j].PaymentMethod
		})
		rows = append(rows, cpRows...)
	}
	return rows
}

func (p *CounterpartyProfiler) tradingPatterns(ds *domain.Dataset, groups []counterpartyGroup) []domain.TradingPattern {
	if p.skip("trading_patterns", ds, domain.ColMatchTimeLocal) {
		return nil
	}

	rows := make([]domain.TradingPattern, 0, len(groups))
	for _, g := range groups {
		var hours, weekdays []int
		combos := make(map[[2]int]struct{})
		for _, rec := range g.records {
			if rec.MatchTimeLocal == nil {
				continue
			}
			hours = append(hours, rec.HourLocal)
			weekdays = append(weekdays, rec.WeekdayLocal)
			combos[[2]int{rec.HourLocal, rec.WeekdayLocal}] = struct{}{}
		}

		row := domain.TradingPattern{
			Counterparty:  g.name,
			WeekdayName:   WeekdayName(0),
			UniqueHourDay: len(combos),
		}
		if h, ok := modeInt(hours); ok {
			row.MostActiveHour = &h
		}
		if wd, ok := modeInt(weekdays); ok {
			row.MostActiveWeekday = &wd
			row.WeekdayName = WeekdayName(wd)
		}
		if len(hours) > 0 {
			minH, maxH := hours[0], hours[0]
			for _, h := range hours[1:] {
				if h < minH {
					minH = h
				}
				if h > maxH {
					maxH = h
				}
			}
			spread := maxH - minH
			row.HourSpread = &spread
		}
		rows = append(rows, row)
	}
	return rows
}

// VIP scoring weights: volume 40, frequency 30, longevity 20, payment
// diversity 10. Each term is clamped before summing so the score is bounded
// to [0, 100].
func (p *CounterpartyProfiler) vipStats(general []domain.CounterpartyStat) []domain.VIPStat {
	if len(general) == 0 {
		return nil
	}

	volumes := make([]float64, len(general))
	ops := make([]float64, len(general))
	for i, s := range general {
		volumes[i] = s.TotalVolume
		ops[i] = float64(s.TotalOperations)
	}
	volumeP90, _ := quantile(volumes, 0.90)
	opsP90, _ := quantile(ops, 0.90)

	stats := make([]domain.VIPStat, 0, len(general))
	for _, s := range general {
		vip := domain.VIPStat{
			CounterpartyStat: s,
			DailyTrader:      s.OperationsPerDay >= 2.0,
			LongTermTrader:   s.DaysActive >= 30,
		}
		if volumeP90 > 0 {
			vip.HighVolumeVIP = s.TotalVolume >= volumeP90
			vip.VIPScore += clamp(s.TotalVolume/volumeP90*40, 0, 40)
		}
		if opsP90 > 0 {
			vip.HighFrequencyVIP = float64(s.TotalOperations) >= opsP90
			vip.VIPScore += clamp(float64(s.TotalOperations)/opsP90*30, 0, 30)
		}
		vip.VIPScore += clamp(float64(s.DaysActive)/365*20, 0, 20)
		vip.VIPScore += clamp(float64(s.PaymentMethodsUsed)/5*10, 0, 10)
		vip.VIPTier = vipTier(vip.VIPScore)
		stats = append(stats, vip)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].VIPScore != stats[j].VIPScore {
			return stats[i].VIPScore > stats[j].VIPScore
		}
		return stats[i].Counterparty < stats[j].Counterparty
	})
	return stats
}

// vipTier bands are inclusive on their lower bound.
func vipTier(score float64) string {
	switch {
	case score >= 80:
		return "Diamond"
	case score >= 60:
		return "Gold"
	case score >= 40:
		return "Silver"
	case score >= 20:
		return "Bronze"
	default:
		return "Standard"
	}
}

func (p *CounterpartyProfiler) efficiencyStats(ds *domain.Dataset, groups []counterpartyGroup) []domain.EfficiencyStat {
	if p.skip("efficiency_stats", ds,
		domain.ColStatus, domain.ColTotalPriceNum, domain.ColMatchTimeLocal) {
		return nil
	}

	stats := make([]domain.EfficiencyStat, 0, len(groups))
	for _, g := range groups {
		total := len(g.records)
		completed, cancelled := 0, 0
		var volumes []float64
		var times []time.Time
		for _, rec := range g.records {
			if rec.Status == "Completed" {
				completed++
			}
			if strings.Contains(rec.Status, "Cancel") {
				cancelled++
			}
			if rec.TotalPriceNum != nil {
				volumes = append(volumes, *rec.TotalPriceNum)
			}
			if rec.MatchTimeLocal != nil {
				times = append(times, *rec.MatchTimeLocal)
			}
		}

		stat := domain.EfficiencyStat{
			Counterparty:     g.name,
			TotalOps:         total,
			CompletionRate:   float64(completed) / float64(total) * 100,
			CancellationRate: float64(cancelled) / float64(total) * 100,
		}

		if vm, ok := mean(volumes); ok && vm != 0 {
			if vs, ok := stddev(volumes); ok {
				stat.VolumeConsistency = floatPtr(vs / vm)
			}
		}
		stat.TimingVariability = timingVariability(times)

		// An undefined consistency (single trade) contributes as zero
		// dispersion rather than voiding the whole score.
		consistency := 0.0
		if stat.VolumeConsistency != nil {
			consistency = *stat.VolumeConsistency
		}
		stat.EfficiencyScore = 0.5*stat.CompletionRate +
			0.3*(100-stat.CancellationRate) +
			0.2*(100-clamp(consistency, 0, 100))

		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].EfficiencyScore != stats[j].EfficiencyScore {
			return stats[i].EfficiencyScore > stats[j].EfficiencyScore
		}
		return stats[i].Counterparty < stats[j].Counterparty
	})
	return stats
}

// timingVariability is the sample std of successive inter-operation gaps in
// hours; nil with fewer than three operations.
func timingVariability(times []time.Time) *float64 {
	if len(times) < 3 {
		return nil
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours())
	}
	if s, ok := stddev(gaps); ok {
		return &s
	}
	return nil
}
