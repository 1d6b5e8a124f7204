package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
)

var counterpartyTestColumns = []domain.Column{
	domain.ColCounterparty,
	domain.ColTotalPriceNum,
	domain.ColPriceNum,
	domain.ColQuantityNum,
	domain.ColMatchTimeLocal,
	domain.ColPaymentMethod,
	domain.ColStatus,
	domain.ColOrderType,
}

func cpRecord(cp string, at time.Time, volume, price float64, method, status string) domain.EnrichedRecord {
	local := at
	return domain.EnrichedRecord{
		TradeRecord: domain.TradeRecord{
			Counterparty:  cp,
			PaymentMethod: method,
			Status:        status,
			OrderType:     "BUY",
		},
		TotalPriceNum:   floatPtr(volume),
		PriceNum:        floatPtr(price),
		QuantityNum:     floatPtr(volume / price),
		MatchTimeParsed: &at,
		MatchTimeLocal:  &local,
		HourLocal:       local.Hour(),
		WeekdayLocal:    isoWeekday(local.Weekday()),
		Year:            local.Year(),
		YearMonth:       local.Format("2006-01"),
	}
}

func cpDataset(recs ...domain.EnrichedRecord) *domain.Dataset {
	return &domain.Dataset{
		Columns: domain.NewColumnSet(counterpartyTestColumns...),
		Records: recs,
	}
}

func TestCounterpartyGeneralStats(t *testing.T) {
	p := NewCounterpartyProfiler()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(
		cpRecord("alice", base, 100, 40, "Bank", "Completed"),
		cpRecord("alice", base.AddDate(0, 0, 3), 200, 41, "Cash", "Completed"),
		cpRecord("alice", base.AddDate(0, 0, 9), 300, 42, "Bank", "Completed"),
		cpRecord("bob", base, 50, 40, "Bank", "Completed"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.GeneralStats, 2)

	// Sorted by total volume descending.
	alice := result.GeneralStats[0]
	assert.Equal(t, "alice", alice.Counterparty)
	assert.Equal(t, 3, alice.TotalOperations)
	assert.InDelta(t, 600.0, alice.TotalVolume, 1e-9)
	assert.InDelta(t, 200.0, alice.AvgVolumePerOp, 1e-9)
	assert.InDelta(t, 200.0, alice.MedianVolumePerOp, 1e-9)
	assert.Equal(t, 2, alice.PaymentMethodsUsed)
	assert.Equal(t, 9, alice.DaysActive)
	// Daily rates divide by days active plus one.
	assert.InDelta(t, 0.3, alice.OperationsPerDay, 1e-9)
	assert.InDelta(t, 60.0, alice.VolumePerDay, 1e-9)
	require.NotNil(t, alice.AvgPrice)
	assert.InDelta(t, 41.0, *alice.AvgPrice, 1e-9)
	require.NotNil(t, alice.PriceCV)

	bob := result.GeneralStats[1]
	assert.Equal(t, 0, bob.DaysActive)
	assert.InDelta(t, 1.0, bob.OperationsPerDay, 1e-9)
	assert.Nil(t, bob.StdPrice, "single price has no sample std")
}

func TestCounterpartyBlankNamesExcluded(t *testing.T) {
	p := NewCounterpartyProfiler()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(
		cpRecord("", at, 100, 40, "Bank", "Completed"),
		cpRecord("   ", at, 100, 40, "Bank", "Completed"),
		cpRecord("alice", at, 100, 40, "Bank", "Completed"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.GeneralStats, 1)
	assert.Equal(t, "alice", result.GeneralStats[0].Counterparty)
}

func TestCounterpartySkippedWithoutIdentifier(t *testing.T) {
	p := NewCounterpartyProfiler()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(cpRecord("alice", at, 100, 40, "Bank", "Completed"))
	delete(ds.Columns, domain.ColCounterparty)

	result := p.Analyze(ds)
	assert.Empty(t, result.GeneralStats)
	assert.Empty(t, result.VIPStats)
	assert.Empty(t, result.EfficiencyStats)
}

func TestCounterpartySubAnalysisSkippedIndependently(t *testing.T) {
	p := NewCounterpartyProfiler()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(cpRecord("alice", at, 100, 40, "Bank", "Completed"))
	delete(ds.Columns, domain.ColStatus)

	result := p.Analyze(ds)
	assert.Empty(t, result.EfficiencyStats, "efficiency needs the status column")
	assert.NotEmpty(t, result.GeneralStats, "the other analyses still run")
	assert.NotEmpty(t, result.TradingPatterns)
}

func TestCounterpartyTemporalEvolution(t *testing.T) {
	p := NewCounterpartyProfiler()

	ds := cpDataset(
		cpRecord("alice", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), 100, 40, "Bank", "Completed"),
		cpRecord("alice", time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), 300, 40, "Cash", "Completed"),
		cpRecord("alice", time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC), 500, 40, "Bank", "Completed"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.TemporalEvolution, 2)

	march := result.TemporalEvolution[0]
	assert.Equal(t, "2024-03", march.YearMonth)
	assert.Equal(t, 2, march.MonthlyOperations)
	assert.InDelta(t, 400.0, march.MonthlyVolume, 1e-9)
	assert.InDelta(t, 200.0, march.AvgMonthlyVolume, 1e-9)
	assert.Equal(t, 2, march.PaymentMethodsMonthly)

	april := result.TemporalEvolution[1]
	assert.Equal(t, "2024-04", april.YearMonth)
	assert.Equal(t, 1, april.MonthlyOperations)
}

func TestCounterpartyPaymentPreferences(t *testing.T) {
	p := NewCounterpartyProfiler()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(
		cpRecord("alice", base, 100, 40, "Bank", "Completed"),
		cpRecord("alice", base.Add(time.Hour), 100, 40, "Bank", "Completed"),
		cpRecord("alice", base.Add(2*time.Hour), 200, 40, "Cash", "Completed"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.PaymentPreferences, 2)

	// Sorted by operation share descending within the counterparty.
	bank := result.PaymentPreferences[0]
	assert.Equal(t, "Bank", bank.PaymentMethod)
	assert.Equal(t, 2, bank.OperationsWith)
	assert.InDelta(t, 66.666666, bank.PctOperations, 1e-3)
	assert.InDelta(t, 50.0, bank.PctVolume, 1e-9)

	cash := result.PaymentPreferences[1]
	assert.Equal(t, "Cash", cash.PaymentMethod)
	assert.InDelta(t, 50.0, cash.PctVolume, 1e-9)
}

func TestCounterpartyTradingPatterns(t *testing.T) {
	p := NewCounterpartyProfiler()

	// Two Friday-14h trades and one Saturday-9h trade.
	ds := cpDataset(
		cpRecord("alice", time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC), 100, 40, "Bank", "Completed"),
		cpRecord("alice", time.Date(2024, 3, 22, 14, 30, 0, 0, time.UTC), 100, 40, "Bank", "Completed"),
		cpRecord("alice", time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC), 100, 40, "Bank", "Completed"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.TradingPatterns, 1)

	pattern := result.TradingPatterns[0]
	require.NotNil(t, pattern.MostActiveHour)
	assert.Equal(t, 14, *pattern.MostActiveHour)
	require.NotNil(t, pattern.MostActiveWeekday)
	assert.Equal(t, 5, *pattern.MostActiveWeekday)
	assert.Equal(t, "Friday", pattern.WeekdayName)
	require.NotNil(t, pattern.HourSpread)
	assert.Equal(t, 5, *pattern.HourSpread)
	assert.Equal(t, 2, pattern.UniqueHourDay)
}

func TestVIPScoreBoundsAndTiers(t *testing.T) {
	p := NewCounterpartyProfiler()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	recs := []domain.EnrichedRecord{}
	// "whale" trades every day for 40 days with five payment methods.
	methods := []string{"Bank", "Cash", "Wire", "Card", "Wallet"}
	for i := 0; i < 40; i++ {
		recs = append(recs, cpRecord("whale", base.AddDate(0, 0, i), 10000, 40, methods[i%5], "Completed"))
	}
	recs = append(recs, cpRecord("minnow", base, 10, 40, "Bank", "Completed"))

	result := p.Analyze(cpDataset(recs...))
	require.Len(t, result.VIPStats, 2)

	whale := result.VIPStats[0]
	assert.Equal(t, "whale", whale.Counterparty)
	assert.True(t, whale.HighVolumeVIP)
	assert.True(t, whale.HighFrequencyVIP)
	assert.True(t, whale.LongTermTrader)
	assert.False(t, whale.DailyTrader, "one op per day is below the daily-trader bar")

	minnow := result.VIPStats[1]
	assert.Equal(t, "minnow", minnow.Counterparty)
	assert.False(t, minnow.HighVolumeVIP)

	for _, vip := range result.VIPStats {
		assert.GreaterOrEqual(t, vip.VIPScore, 0.0)
		assert.LessOrEqual(t, vip.VIPScore, 100.0)
		assert.Contains(t,
			[]string{"Diamond", "Gold", "Silver", "Bronze", "Standard"},
			vip.VIPTier)
	}
	assert.GreaterOrEqual(t, result.VIPStats[0].VIPScore, result.VIPStats[1].VIPScore)
}

func TestVIPTierBands(t *testing.T) {
	assert.Equal(t, "Diamond", vipTier(80))
	assert.Equal(t, "Gold", vipTier(79.9))
	assert.Equal(t, "Gold", vipTier(60))
	assert.Equal(t, "Silver", vipTier(59.9))
	assert.Equal(t, "Silver", vipTier(40))
	assert.Equal(t, "Bronze", vipTier(39.9))
	assert.Equal(t, "Bronze", vipTier(20))
	assert.Equal(t, "Standard", vipTier(19.9))
	assert.Equal(t, "Standard", vipTier(0))
}

func TestEfficiencyScore(t *testing.T) {
	p := NewCounterpartyProfiler()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(
		cpRecord("alice", base, 100, 40, "Bank", "Completed"),
		cpRecord("alice", base.Add(time.Hour), 200, 40, "Bank", "Completed"),
		cpRecord("alice", base.Add(2*time.Hour), 300, 40, "Bank", "Completed"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.EfficiencyStats, 1)

	eff := result.EfficiencyStats[0]
	assert.InDelta(t, 100.0, eff.CompletionRate, 1e-9)
	assert.InDelta(t, 0.0, eff.CancellationRate, 1e-9)
	require.NotNil(t, eff.VolumeConsistency)
	assert.InDelta(t, 0.5, *eff.VolumeConsistency, 1e-9)
	// 0.5*100 + 0.3*100 + 0.2*(100-0.5)
	assert.InDelta(t, 99.9, eff.EfficiencyScore, 1e-9)

	require.NotNil(t, eff.TimingVariability)
	assert.InDelta(t, 0.0, *eff.TimingVariability, 1e-9, "evenly spaced ops have zero gap variance")
}

func TestEfficiencyCancellations(t *testing.T) {
	p := NewCounterpartyProfiler()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	ds := cpDataset(
		cpRecord("bob", base, 100, 40, "Bank", "Completed"),
		cpRecord("bob", base.Add(time.Hour), 100, 40, "Bank", "Cancelled"),
		cpRecord("bob", base.Add(2*time.Hour), 100, 40, "Bank", "Cancelled by system"),
		cpRecord("bob", base.Add(3*time.Hour), 100, 40, "Bank", "Pending"),
	)

	result := p.Analyze(ds)
	require.Len(t, result.EfficiencyStats, 1)

	eff := result.EfficiencyStats[0]
	assert.InDelta(t, 25.0, eff.CompletionRate, 1e-9)
	assert.InDelta(t, 50.0, eff.CancellationRate, 1e-9)
}

func TestTimingVariabilityNeedsThreeOps(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Nil(t, timingVariability([]time.Time{base, base.Add(time.Hour)}))

	v := timingVariability([]time.Time{base, base.Add(time.Hour), base.Add(4*time.Hour)})
	require.NotNil(t, v)
	assert.Greater(t, *v, 0.0)
}
