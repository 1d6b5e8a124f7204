package domain

import (
	"sort"
	"time"
)

// Table is the two-dimensional value handed to reporting consumers. Any
// table may be empty; consumers must tolerate that.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Report maps a table name (e.g. "session_stats", "vip_counterparties") to
// its table.
type Report map[string]Table

// AllTableNames lists every table a full report carries.
var AllTableNames = []string{
	"session_stats",
	"session_patterns",
	"session_efficiency",
	"session_temporal_distribution",
	"counterparty_sessions",
	"general_stats",
	"temporal_evolution",
	"payment_preferences",
	"trading_patterns",
	"vip_counterparties",
	"efficiency_stats",
	"risk_usd_summary",
	"risk_usd_daily_returns",
	"risk_uyu_summary",
	"risk_uyu_daily_returns",
}

func (r Report) TableNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SessionStat aggregates one trading session: a maximal run of
// chronologically adjacent operations separated by gaps no greater than the
// configured threshold.
type SessionStat struct {
	SessionID            int       `json:"session_id"`
	Start                time.Time `json:"session_start"`
	End                  time.Time `json:"session_end"`
	NumOperations        int       `json:"num_operations"`
	TotalVolume          float64   `json:"total_volume"`
	AvgVolumePerOp       float64   `json:"avg_volume_per_op"`
	TotalQuantity        float64   `json:"total_quantity"`
	UniqueCounterparties int       `json:"unique_counterparties"`
	DominantFiat         string    `json:"dominant_fiat"`
	DominantAsset        string    `json:"dominant_asset"`
	DurationMinutes      float64   `json:"duration_minutes"`
	OperationsPerHour    float64   `json:"operations_per_hour"`
	VolumePerMinute      float64   `json:"volume_per_minute"`
}

// SessionHourBucket distributes sessions over their starting hour.
type SessionHourBucket struct {
	StartHour     int     `json:"start_hour"`
	NumSessions   int     `json:"num_sessions"`
	TotalVolume   float64 `json:"total_volume"`
	AvgDuration   float64 `json:"avg_duration"`
	AvgOperations float64 `json:"avg_operations"`
}

// SessionPattern captures the hour-of-day footprint of one session.
type SessionPattern struct {
	SessionID   int     `json:"session_id"`
	StartHour   int     `json:"session_start_hour"`
	EndHour     int     `json:"session_end_hour"`
	TotalOps    int     `json:"total_ops"`
	TotalVolume float64 `json:"total_volume"`
	HourSpan    int     `json:"hour_span"`
}

// SessionEfficiency scores one session on throughput and consistency.
type SessionEfficiency struct {
	SessionID        int      `json:"session_id"`
	NumOperations    int      `json:"num_operations"`
	TotalVolume      float64  `json:"total_volume"`
	VolumeVolatility *float64 `json:"volume_volatility"`
	VolumeIQR        float64  `json:"volume_iqr"`
	DurationMinutes  float64  `json:"duration_minutes"`
	VolumeEfficiency float64  `json:"volume_efficiency"`
	IntensityScore   float64  `json:"intensity_score"`
	ConsistencyScore *float64 `json:"consistency_score"`
}

// CounterpartySessionStat summarizes how one counterparty behaves across
// sessions.
type CounterpartySessionStat struct {
	Counterparty       string  `json:"counterparty"`
	TotalSessions      int     `json:"total_sessions"`
	AvgOpsPerSession   float64 `json:"avg_ops_per_session"`
	AvgVolumePerSess   float64 `json:"avg_volume_per_session"`
	MaxOpsInSession    int     `json:"max_ops_in_session"`
	MaxVolumeInSession float64 `json:"max_volume_in_session"`
	AvgSessionDuration float64 `json:"avg_session_duration_minutes"`
}

// CounterpartyStat is the per-counterparty general aggregate.
type CounterpartyStat struct {
	Counterparty       string    `json:"counterparty"`
	TotalOperations    int       `json:"total_operations"`
	TotalVolume        float64   `json:"total_volume"`
	AvgVolumePerOp     float64   `json:"avg_volume_per_op"`
	MedianVolumePerOp  float64   `json:"median_volume_per_op"`
	TotalQuantity      float64   `json:"total_quantity"`
	AvgPrice           *float64  `json:"avg_price"`
	StdPrice           *float64  `json:"std_price"`
	FirstOperation     time.Time `json:"first_operation"`
	LastOperation      time.Time `json:"last_operation"`
	PaymentMethodsUsed int       `json:"payment_methods_used"`
	OperationTypes     int       `json:"operation_types"`
	DaysActive         int       `json:"days_active"`
	OperationsPerDay   float64   `json:"operations_per_day"`
	VolumePerDay       float64   `json:"volume_per_day"`
	PriceCV            *float64  `json:"price_cv"`
}

// MonthlyActivity is one (counterparty, month) cell of the temporal
// evolution table.
type MonthlyActivity struct {
	Counterparty          string  `json:"counterparty"`
	YearMonth             string  `json:"year_month"`
	MonthlyOperations     int     `json:"monthly_operations"`
	MonthlyVolume         float64 `json:"monthly_volume"`
	AvgMonthlyVolume      float64 `json:"avg_monthly_volume"`
	PaymentMethodsMonthly int     `json:"payment_methods_monthly"`
}

// PaymentPreference is one (counterparty, payment method) share row.
type PaymentPreference struct {
	Counterparty      string  `json:"counterparty"`
	PaymentMethod     string  `json:"payment_method"`
	OperationsWith    int     `json:"operations_with_method"`
	VolumeWith        float64 `json:"volume_with_method"`
	AvgVolumeWith     float64 `json:"avg_volume_with_method"`
	PctOperations     float64 `json:"pct_operations"`
	PctVolume         float64 `json:"pct_volume"`
	TotalOperationsCP int     `json:"total_operations_cp"`
	TotalVolumeCP     float64 `json:"total_volume_cp"`
}

// TradingPattern captures when a counterparty tends to operate.
type TradingPattern struct {
	Counterparty      string `json:"counterparty"`
	MostActiveHour    *int   `json:"most_active_hour"`
	MostActiveWeekday *int   `json:"most_active_weekday"` // ISO Monday=1..Sunday=7
	WeekdayName       string `json:"most_active_weekday_name"`
	HourSpread        *int   `json:"hour_spread"`
	UniqueHourDay     int    `json:"unique_hour_day_combinations"`
}

// VIPStat extends the general aggregate with the composite VIP scoring.
type VIPStat struct {
	CounterpartyStat

	HighVolumeVIP    bool    `json:"high_volume_vip"`
	HighFrequencyVIP bool    `json:"high_frequency_vip"`
	DailyTrader      bool    `json:"daily_trader"`
	LongTermTrader   bool    `json:"long_term_trader"`
	VIPScore         float64 `json:"vip_score"`
	VIPTier          string  `json:"vip_tier"`
}

// EfficiencyStat is the per-counterparty efficiency composite.
type EfficiencyStat struct {
	Counterparty      string   `json:"counterparty"`
	TotalOps          int      `json:"total_ops"`
	CompletionRate    float64  `json:"completion_rate"`
	CancellationRate  float64  `json:"cancellation_rate"`
	TimingVariability *float64 `json:"timing_variability_hours"`
	VolumeConsistency *float64 `json:"volume_consistency"`
	EfficiencyScore   float64  `json:"efficiency_score"`
}

// DailyReturn is one element of a derived return series. Date is the local
// calendar day as "YYYY-MM-DD".
type DailyReturn struct {
	Date   string   `json:"date"`
	Price  float64  `json:"price"`
	Return *float64 `json:"return"` // nil for the first observation
}

// TailRisk is the VaR/CVaR pair at one confidence level.
type TailRisk struct {
	Confidence float64  `json:"confidence"`
	VaR        *float64 `json:"var"`
	CVaR       *float64 `json:"cvar"`
}

// RiskSummary gathers the tail-risk statistics for one fiat's price series.
type RiskSummary struct {
	Fiat       string     `json:"fiat"`
	Days       int        `json:"days"`
	MeanReturn *float64   `json:"mean_return"`
	StdReturn  *float64   `json:"std_return"`
	Tails      []TailRisk `json:"tails"`
	Sharpe     *float64   `json:"sharpe"`
}
