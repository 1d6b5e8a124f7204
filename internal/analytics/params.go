// Package analytics holds the in-memory analytics core: record enrichment,
// session segmentation, counterparty profiling and tail-risk statistics.
// Every component consumes an immutable domain.Dataset and produces new
// outputs; data problems degrade to nulls or empty tables, never to errors.
package analytics

// Params is the immutable analysis configuration threaded through the
// pipeline. Construct it once (DefaultParams or from config) and pass it by
// value; there is no package-level state.
type Params struct {
	// SessionGapMinutes is the inactivity gap that opens a new session.
	SessionGapMinutes int

	// LocalTimezone is the IANA zone local time features are derived in.
	LocalTimezone string

	// ConfidenceLevels are the levels VaR/CVaR are computed at.
	ConfidenceLevels []float64

	// Sharpe ratio inputs.
	RiskFreeRateAnnual float64
	PeriodsPerYear     int
}

func DefaultParams() Params {
	return Params{
		SessionGapMinutes:  30,
		LocalTimezone:      "America/Montevideo",
		ConfidenceLevels:   []float64{0.95, 0.99},
		RiskFreeRateAnnual: 0.0,
		PeriodsPerYear:     252,
	}
}
