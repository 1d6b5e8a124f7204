package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
)

var allRawColumns = []domain.Column{
	domain.ColOrderNumber, domain.ColOrderType, domain.ColAssetType,
	domain.ColFiatType, domain.ColTotalPrice, domain.ColPrice,
	domain.ColQuantity, domain.ColStatus, domain.ColMatchTimeUTC,
	domain.ColPaymentMethod, domain.ColMakerFee, domain.ColTakerFee,
	domain.ColCounterparty,
}

func rawDataset(recs []domain.TradeRecord, cols ...domain.Column) *domain.Dataset {
	if len(cols) == 0 {
		cols = allRawColumns
	}
	enriched := make([]domain.EnrichedRecord, len(recs))
	for i, r := range recs {
		enriched[i] = domain.EnrichedRecord{TradeRecord: r}
	}
	return &domain.Dataset{
		Columns: domain.NewColumnSet(cols...),
		Records: enriched,
	}
}

func utcParams() Params {
	p := DefaultParams()
	p.LocalTimezone = "UTC"
	return p
}

func newTestEnricher(t *testing.T) *Enricher {
	t.Helper()
	e, err := NewEnricher(utcParams())
	require.NoError(t, err)
	return e
}

func TestEnrichDerivesNumericColumns(t *testing.T) {
	e := newTestEnricher(t)

	ds := rawDataset([]domain.TradeRecord{{
		AssetType:    "USDT",
		FiatType:     "UYU",
		TotalPrice:   "53.550,50",
		Price:        "42,5",
		Quantity:     "1.260,01",
		MakerFee:     "1,5",
		TakerFee:     "",
		MatchTimeUTC: "2024-03-15 14:30:00",
	}})

	out := e.Enrich(ds)
	require.Len(t, out.Records, 1)
	rec := out.Records[0]

	require.NotNil(t, rec.TotalPriceNum)
	assert.InDelta(t, 53550.50, *rec.TotalPriceNum, 1e-9)
	require.NotNil(t, rec.PriceNum)
	assert.InDelta(t, 42.5, *rec.PriceNum, 1e-9)
	require.NotNil(t, rec.QuantityNum)
	assert.InDelta(t, 1260.01, *rec.QuantityNum, 1e-9)

	assert.Nil(t, rec.TakerFeeNum)
	assert.InDelta(t, 1.5, rec.TotalFee, 1e-9, "missing fee treated as zero in the total")

	assert.True(t, out.Enriched())
	// Input dataset is untouched.
	assert.Nil(t, ds.Records[0].TotalPriceNum)
	assert.False(t, ds.Columns.Has(domain.ColTotalPriceNum))
}

func TestEnrichUnparsableAmountBecomesNull(t *testing.T) {
	e := newTestEnricher(t)

	ds := rawDataset([]domain.TradeRecord{{
		TotalPrice:   "not a number",
		MatchTimeUTC: "2024-03-15 14:30:00",
	}})

	out := e.Enrich(ds)
	require.Len(t, out.Records, 1)
	assert.Nil(t, out.Records[0].TotalPriceNum)
	assert.Equal(t, 0, out.DroppedRows, "unparsable amounts never drop rows")
}

func TestEnrichUSDTUSDPriceCorrection(t *testing.T) {
	e := newTestEnricher(t)

	ds := rawDataset([]domain.TradeRecord{
		{AssetType: "USDT", FiatType: "USD", Price: "1050", TotalPrice: "100", MatchTimeUTC: "2024-03-15 14:30:00"},
		{AssetType: "USDT", FiatType: "USD", Price: "1.05", TotalPrice: "100", MatchTimeUTC: "2024-03-15 14:31:00"},
		{AssetType: "USDT", FiatType: "UYU", Price: "1050", TotalPrice: "100", MatchTimeUTC: "2024-03-15 14:32:00"},
	})

	out := e.Enrich(ds)
	require.Len(t, out.Records, 3)

	assert.InDelta(t, 1.05, *out.Records[0].PriceNum, 1e-9, "shifted decimal corrected")
	assert.InDelta(t, 1.05, *out.Records[1].PriceNum, 1e-9, "plausible price untouched")
	assert.InDelta(t, 1050.0, *out.Records[2].PriceNum, 1e-9, "non-USD pair untouched")
}

func TestEnrichUSDEquivalent(t *testing.T) {
	e := newTestEnricher(t)

	ds := rawDataset([]domain.TradeRecord{
		{AssetType: "USDT", FiatType: "USD", TotalPrice: "100", Price: "1.05", MatchTimeUTC: "2024-03-15 14:30:00"},
		{AssetType: "USDT", FiatType: "UYU", TotalPrice: "4000", Price: "40", MatchTimeUTC: "2024-03-15 14:31:00"},
		{AssetType: "BTC", FiatType: "EUR", TotalPrice: "500", Price: "60000", MatchTimeUTC: "2024-03-15 14:32:00"},
	})

	out := e.Enrich(ds)
	require.Len(t, out.Records, 3)

	require.NotNil(t, out.Records[0].TotalPriceUSD)
	assert.InDelta(t, 100.0, *out.Records[0].TotalPriceUSD, 1e-9)

	require.NotNil(t, out.Records[1].TotalPriceUSD)
	assert.InDelta(t, 100.0, *out.Records[1].TotalPriceUSD, 1e-9)

	assert.Nil(t, out.Records[2].TotalPriceUSD, "unknown pair has no USD equivalent")
	assert.True(t, out.Columns.Has(domain.ColTotalPriceUSD))
}

func TestEnrichDropsUnparsableTimestamps(t *testing.T) {
	e := newTestEnricher(t)

	ds := rawDataset([]domain.TradeRecord{
		{OrderNumber: "1", TotalPrice: "100", MatchTimeUTC: "2024-03-15 14:30:00"},
		{OrderNumber: "2", TotalPrice: "200", MatchTimeUTC: "garbage"},
		{OrderNumber: "3", TotalPrice: "300", MatchTimeUTC: "2024-03-15 15:00:00"},
	})

	out := e.Enrich(ds)
	require.Len(t, out.Records, 2)
	assert.Equal(t, 1, out.DroppedRows)
	assert.Equal(t, "1", out.Records[0].OrderNumber)
	assert.Equal(t, "3", out.Records[1].OrderNumber)
}

func TestEnrichTimeColumnAbsentKeepsRows(t *testing.T) {
	e := newTestEnricher(t)

	cols := []domain.Column{domain.ColTotalPrice, domain.ColQuantity}
	ds := rawDataset([]domain.TradeRecord{
		{TotalPrice: "100", Quantity: "1"},
		{TotalPrice: "200", Quantity: "2"},
	}, cols...)

	out := e.Enrich(ds)
	assert.Len(t, out.Records, 2, "column absence never drops rows")
	assert.Equal(t, 0, out.DroppedRows)
	assert.False(t, out.Columns.Has(domain.ColMatchTimeLocal))
	assert.Nil(t, out.Records[0].MatchTimeParsed)
}

func TestEnrichMissingRawColumnYieldsNulls(t *testing.T) {
	e := newTestEnricher(t)

	cols := []domain.Column{domain.ColTotalPrice, domain.ColMatchTimeUTC}
	ds := rawDataset([]domain.TradeRecord{
		{TotalPrice: "100", MatchTimeUTC: "2024-03-15 14:30:00"},
	}, cols...)

	out := e.Enrich(ds)
	require.Len(t, out.Records, 1)
	assert.True(t, out.Columns.Has(domain.ColQuantityNum))
	assert.Nil(t, out.Records[0].QuantityNum)
}

func TestEnrichIsIdempotent(t *testing.T) {
	e := newTestEnricher(t)

	ds := rawDataset([]domain.TradeRecord{
		// Price needing the decimal-shift correction: a second pass must not
		// divide it again.
		{AssetType: "USDT", FiatType: "USD", Price: "1050", TotalPrice: "100",
			Quantity: "95", MatchTimeUTC: "2024-03-15 14:30:00"},
	})

	once := e.Enrich(ds)
	twice := e.Enrich(once)

	require.Len(t, twice.Records, 1)
	assert.InDelta(t, 1.05, *twice.Records[0].PriceNum, 1e-9)
	assert.Equal(t, once.DroppedRows, twice.DroppedRows)
	assert.Equal(t, once.Records[0], twice.Records[0])
}
