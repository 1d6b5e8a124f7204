package domain

import (
	"fmt"
	"time"
)

// Converters from typed stat rows to the generic Table contract. Nullable
// fields become nil cells, never zero.

func fcell(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func icell(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

const tableTimeLayout = "2006-01-02 15:04:05"

func tcell(t time.Time) any { return t.UTC().Format(tableTimeLayout) }

func SessionStatsTable(stats []SessionStat) Table {
	t := Table{Columns: []string{
		"session_id", "session_start", "session_end", "num_operations",
		"total_volume", "avg_volume_per_op", "total_quantity",
		"unique_counterparties", "dominant_fiat", "dominant_asset",
		"duration_minutes", "operations_per_hour", "volume_per_minute",
	}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []any{
			s.SessionID, tcell(s.Start), tcell(s.End), s.NumOperations,
			s.TotalVolume, s.AvgVolumePerOp, s.TotalQuantity,
			s.UniqueCounterparties, s.DominantFiat, s.DominantAsset,
			s.DurationMinutes, s.OperationsPerHour, s.VolumePerMinute,
		})
	}
	return t
}

func SessionPatternsTable(patterns []SessionPattern) Table {
	t := Table{Columns: []string{
		"session_id", "session_start_hour", "session_end_hour",
		"total_ops", "total_volume", "hour_span",
	}}
	for _, p := range patterns {
		t.Rows = append(t.Rows, []any{
			p.SessionID, p.StartHour, p.EndHour,
			p.TotalOps, p.TotalVolume, p.HourSpan,
		})
	}
	return t
}

func SessionEfficiencyTable(stats []SessionEfficiency) Table {
	t := Table{Columns: []string{
		"session_id", "num_operations", "total_volume", "volume_volatility",
		"volume_iqr", "duration_minutes", "volume_efficiency",
		"intensity_score", "consistency_score",
	}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []any{
			s.SessionID, s.NumOperations, s.TotalVolume, fcell(s.VolumeVolatility),
			s.VolumeIQR, s.DurationMinutes, s.VolumeEfficiency,
			s.IntensityScore, fcell(s.ConsistencyScore),
		})
	}
	return t
}

func SessionHourTable(buckets []SessionHourBucket) Table {
	t := Table{Columns: []string{
		"start_hour", "num_sessions", "total_volume", "avg_duration", "avg_operations",
	}}
	for _, b := range buckets {
		t.Rows = append(t.Rows, []any{
			b.StartHour, b.NumSessions, b.TotalVolume, b.AvgDuration, b.AvgOperations,
		})
	}
	return t
}

func CounterpartySessionsTable(stats []CounterpartySessionStat) Table {
	t := Table{Columns: []string{
		"counterparty", "total_sessions", "avg_ops_per_session",
		"avg_volume_per_session", "max_ops_in_session",
		"max_volume_in_session", "avg_session_duration_minutes",
	}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []any{
			s.Counterparty, s.TotalSessions, s.AvgOpsPerSession,
			s.AvgVolumePerSess, s.MaxOpsInSession,
			s.MaxVolumeInSession, s.AvgSessionDuration,
		})
	}
	return t
}

func GeneralStatsTable(stats []CounterpartyStat) Table {
	t := Table{Columns: []string{
		"counterparty", "total_operations", "total_volume", "avg_volume_per_op",
		"median_volume_per_op", "total_quantity", "avg_price", "std_price",
		"first_operation", "last_operation", "payment_methods_used",
		"operation_types", "days_active", "operations_per_day",
		"volume_per_day", "price_cv",
	}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []any{
			s.Counterparty, s.TotalOperations, s.TotalVolume, s.AvgVolumePerOp,
			s.MedianVolumePerOp, s.TotalQuantity, fcell(s.AvgPrice), fcell(s.StdPrice),
			tcell(s.FirstOperation), tcell(s.LastOperation), s.PaymentMethodsUsed,
			s.OperationTypes, s.DaysActive, s.OperationsPerDay,
			s.VolumePerDay, fcell(s.PriceCV),
		})
	}
	return t
}

func TemporalEvolutionTable(rows []MonthlyActivity) Table {
	t := Table{Columns: []string{
		"counterparty", "year_month", "monthly_operations", "monthly_volume",
		"avg_monthly_volume", "payment_methods_monthly",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.Counterparty, r.YearMonth, r.MonthlyOperations, r.MonthlyVolume,
			r.AvgMonthlyVolume, r.PaymentMethodsMonthly,
		})
	}
	return t
}

func PaymentPreferencesTable(rows []PaymentPreference) Table {
	t := Table{Columns: []string{
		"counterparty", "payment_method", "operations_with_method",
		"volume_with_method", "avg_volume_with_method", "pct_operations",
		"pct_volume",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.Counterparty, r.PaymentMethod, r.OperationsWith,
			r.VolumeWith, r.AvgVolumeWith, r.PctOperations,
			r.PctVolume,
		})
	}
	return t
}

func TradingPatternsTable(rows []TradingPattern) Table {
	t := Table{Columns: []string{
		"counterparty", "most_active_hour", "most_active_weekday",
		"most_active_weekday_name", "hour_spread", "unique_hour_day_combinations",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.Counterparty, icell(r.MostActiveHour), icell(r.MostActiveWeekday),
			r.WeekdayName, icell(r.HourSpread), r.UniqueHourDay,
		})
	}
	return t
}

func VIPTable(stats []VIPStat) Table {
	t := Table{Columns: []string{
		"counterparty", "total_operations", "total_volume", "days_active",
		"payment_methods_used", "high_volume_vip", "high_frequency_vip",
		"daily_trader", "long_term_trader", "vip_score", "vip_tier",
	}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []any{
			s.Counterparty, s.TotalOperations, s.TotalVolume, s.DaysActive,
			s.PaymentMethodsUsed, s.HighVolumeVIP, s.HighFrequencyVIP,
			s.DailyTrader, s.LongTermTrader, s.VIPScore, s.VIPTier,
		})
	}
	return t
}

func EfficiencyTable(stats []EfficiencyStat) Table {
	t := Table{Columns: []string{
		"counterparty", "total_ops", "completion_rate", "cancellation_rate",
		"timing_variability_hours", "volume_consistency", "efficiency_score",
	}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []any{
			s.Counterparty, s.TotalOps, s.CompletionRate, s.CancellationRate,
			fcell(s.TimingVariability), fcell(s.VolumeConsistency), s.EfficiencyScore,
		})
	}
	return t
}

func DailyReturnsTable(rows []DailyReturn) Table {
	t := Table{Columns: []string{"date", "price", "return"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.Date, r.Price, fcell(r.Return),
		})
	}
	return t
}

func RiskSummaryTable(s RiskSummary) Table {
	t := Table{Columns: []string{"metric", "value"}}
	if s.Days == 0 {
		return t
	}
	t.Rows = [][]any{
		{"days", s.Days},
		{"mean_return", fcell(s.MeanReturn)},
		{"std_return", fcell(s.StdReturn)},
	}
	for _, tail := range s.Tails {
		label := fmt.Sprintf("%.0f", tail.Confidence*100)
		t.Rows = append(t.Rows,
			[]any{"VaR" + label, fcell(tail.VaR)},
			[]any{"CVaR" + label, fcell(tail.CVaR)},
		)
	}
	t.Rows = append(t.Rows, []any{"sharpe", fcell(s.Sharpe)})
	return t
}
