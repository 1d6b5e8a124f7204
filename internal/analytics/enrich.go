package analytics

import (
	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// Enricher turns a raw dataset into the canonical enriched record set:
// typed numerics, fee totals, USD-equivalent volumes, known price-quirk
// corrections and local-time features. Raw fields are never rewritten.
//
// Enrichment is idempotent: each transform checks for its derived column
// and skips when it already exists, so re-running over an already-enriched
// (or re-filtered) dataset does not double-apply anything.
type Enricher struct {
	params Params
	times  *TimeNormalizer
	log    *zap.Logger
}

func NewEnricher(params Params) (*Enricher, error) {
	tn, err := NewTimeNormalizer(params.LocalTimezone)
	if err != nil {
		return nil, err
	}
	return &Enricher{
		params: params,
		times:  tn,
		log:    logger.Named("enricher"),
	}, nil
}

// numericColumns maps each raw amount column to its derived column.
var numericColumns = []struct {
	raw     domain.Column
	derived domain.Column
	get     func(*domain.EnrichedRecord) string
	set     func(*domain.EnrichedRecord, *float64)
}{
	{domain.ColQuantity, domain.ColQuantityNum,
		func(r *domain.EnrichedRecord) string { return r.Quantity },
		func(r *domain.EnrichedRecord, v *float64) { r.QuantityNum = v }},
	{domain.ColMakerFee, domain.ColMakerFeeNum,
		func(r *domain.EnrichedRecord) string { return r.MakerFee },
		func(r *domain.EnrichedRecord, v *float64) { r.MakerFeeNum = v }},
	{domain.ColTakerFee, domain.ColTakerFeeNum,
		func(r *domain.EnrichedRecord) string { return r.TakerFee },
		func(r *domain.EnrichedRecord, v *float64) { r.TakerFeeNum = v }},
	{domain.ColPrice, domain.ColPriceNum,
		func(r *domain.EnrichedRecord) string { return r.Price },
		func(r *domain.EnrichedRecord, v *float64) { r.PriceNum = v }},
	{domain.ColTotalPrice, domain.ColTotalPriceNum,
		func(r *domain.EnrichedRecord) string { return r.TotalPrice },
		func(r *domain.EnrichedRecord, v *float64) { r.TotalPriceNum = v }},
}

// Enrich derives the typed columns over a copy of the dataset and returns
// it; the input dataset is left untouched.
func (e *Enricher) Enrich(ds *domain.Dataset) *domain.Dataset {
	out := &domain.Dataset{
		Columns:     ds.Columns.Clone(),
		Records:     make([]domain.EnrichedRecord, len(ds.Records)),
		DroppedRows: ds.DroppedRows,
	}
	copy(out.Records, ds.Records)

	e.processNumericColumns(out)
	e.computeTotalFee(out)
	e.patchUSDTUSDPrice(out)
	e.computeUSDEquivalent(out)
	e.processTimeFeatures(out)

	return out
}

func (e *Enricher) processNumericColumns(ds *domain.Dataset) {
	for _, nc := range numericColumns {
		if ds.Columns.Has(nc.derived) {
			e.log.Debug("numeric column already derived, skipping",
				zap.String("column", string(nc.derived)))
			continue
		}
		if !ds.Columns.Has(nc.raw) {
			e.log.Warn("raw column absent, derived column created with nulls",
				zap.String("column", string(nc.raw)))
			ds.Columns.Add(nc.derived)
			continue
		}
		for i := range ds.Records {
			nc.set(&ds.Records[i], ParseAmount(nc.get(&ds.Records[i])))
		}
		ds.Columns.Add(nc.derived)
	}
}

func (e *Enricher) computeTotalFee(ds *domain.Dataset) {
	if ds.Columns.Has(domain.ColTotalFee) {
		return
	}
	for i := range ds.Records {
		rec := &ds.Records[i]
		var fee float64
		if rec.MakerFeeNum != nil {
			fee += *rec.MakerFeeNum
		}
		if rec.TakerFeeNum != nil {
			fee += *rec.TakerFeeNum
		}
		rec.TotalFee = fee
	}
	ds.Columns.Add(domain.ColTotalFee)
}

// patchUSDTUSDPrice corrects a known export quirk: USDT/USD prices above 10
// were exported with a shifted decimal point and need dividing by 1000.
func (e *Enricher) patchUSDTUSDPrice(ds *domain.Dataset) {
	if missing := ds.Columns.Missing(domain.ColAssetType, domain.ColFiatType, domain.ColPriceNum); len(missing) > 0 {
		e.log.Info("price correction skipped, columns missing",
			zap.Strings("columns", domain.ColumnNames(missing)))
		return
	}
	if ds.Columns.Has(domain.ColTotalPriceUSD) {
		// USD-equivalent already derived from corrected prices.
		return
	}

	corrected := 0
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.AssetType == "USDT" && rec.FiatType == "USD" &&
			rec.PriceNum != nil && *rec.PriceNum > 10 {
			rec.PriceNum = floatPtr(*rec.PriceNum / 1000)
			corrected++
		}
	}
	if corrected > 0 {
		e.log.Info("applied USDT/USD price correction", zap.Int("rows", corrected))
	}
}

func (e *Enricher) computeUSDEquivalent(ds *domain.Dataset) {
	if ds.Columns.Has(domain.ColTotalPriceUSD) {
		return
	}
	if missing := ds.Columns.Missing(domain.ColTotalPriceNum, domain.ColFiatType, domain.ColAssetType, domain.ColPriceNum); len(missing) > 0 {
		e.log.Warn("usd equivalent column created with nulls, columns missing",
			zap.Strings("columns", domain.ColumnNames(missing)))
		ds.Columns.Add(domain.ColTotalPriceUSD)
		return
	}

	for i := range ds.Records {
		rec := &ds.Records[i]
		switch {
		case rec.TotalPriceNum == nil:
			rec.TotalPriceUSD = nil
		case rec.FiatType == "USD" || rec.FiatType == "USDT":
			rec.TotalPriceUSD = floatPtr(*rec.TotalPriceNum)
		case rec.FiatType == "UYU" && rec.AssetType == "USDT" &&
			rec.PriceNum != nil && *rec.PriceNum != 0:
			rec.TotalPriceUSD = floatPtr(*rec.TotalPriceNum / *rec.PriceNum)
		default:
			rec.TotalPriceUSD = nil
		}
	}
	ds.Columns.Add(domain.ColTotalPriceUSD)
}

func (e *Enricher) processTimeFeatures(ds *domain.Dataset) {
	if ds.Columns.Has(domain.ColMatchTimeLocal) {
		e.log.Debug("time features already derived, skipping")
		return
	}
	if !ds.Columns.Has(domain.ColMatchTimeUTC) {
		// Column absent is not the same as values unparsable: keep every
		// row, leave the time fields null.
		e.log.Warn("time column absent, derived time columns are null")
		return
	}

	kept := ds.Records[:0]
	dropped := 0
	for i := range ds.Records {
		if e.times.Apply(&ds.Records[i]) {
			kept = append(kept, ds.Records[i])
		} else {
			dropped++
		}
	}
	ds.Records = kept
	if dropped > 0 {
		ds.DroppedRows += dropped
		metrics.RecordsDropped.Add(float64(dropped))
		e.log.Warn("rows dropped after timestamp conversion", zap.Int("rows", dropped))
	}
	ds.Columns.Add(domain.ColMatchTimeLocal)
}
