package domain

import (
	"strings"
	"time"
)

// Column identifies a canonical field of the trade ledger. External sources
// map their own header names onto these once, at ingestion; everything
// downstream only ever reads canonical names.
type Column string

const (
	ColOrderNumber   Column = "order_number"
	ColOrderType     Column = "order_type"
	ColAssetType     Column = "asset_type"
	ColFiatType      Column = "fiat_type"
	ColTotalPrice    Column = "total_price"
	ColPrice         Column = "price"
	ColQuantity      Column = "quantity"
	ColStatus        Column = "status"
	ColMatchTimeUTC  Column = "match_time_utc"
	ColPaymentMethod Column = "payment_method"
	ColMakerFee      Column = "maker_fee"
	ColTakerFee      Column = "taker_fee"
	ColCounterparty  Column = "counterparty"

	// Derived columns added by enrichment. Their presence in a ColumnSet
	// marks the dataset as already enriched.
	ColQuantityNum    Column = "quantity_num"
	ColPriceNum       Column = "price_num"
	ColTotalPriceNum  Column = "total_price_num"
	ColMakerFeeNum    Column = "maker_fee_num"
	ColTakerFeeNum    Column = "taker_fee_num"
	ColTotalFee       Column = "total_fee"
	ColTotalPriceUSD  Column = "total_price_usd_equivalent"
	ColMatchTimeLocal Column = "match_time_local"
)

// ColumnSet describes which canonical columns a dataset actually carries.
// Analyses declare their required columns and are skipped uniformly when
// some are missing, instead of guessing from zero values.
type ColumnSet map[Column]struct{}

func NewColumnSet(cols ...Column) ColumnSet {
	cs := make(ColumnSet, len(cols))
	for _, c := range cols {
		cs[c] = struct{}{}
	}
	return cs
}

func (cs ColumnSet) Has(c Column) bool {
	_, ok := cs[c]
	return ok
}

func (cs ColumnSet) Add(cols ...Column) {
	for _, c := range cols {
		cs[c] = struct{}{}
	}
}

// Missing returns the subset of required columns not present, in the order
// given.
func (cs ColumnSet) Missing(required ...Column) []Column {
	var missing []Column
	for _, c := range required {
		if !cs.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func (cs ColumnSet) Clone() ColumnSet {
	out := make(ColumnSet, len(cs))
	for c := range cs {
		out[c] = struct{}{}
	}
	return out
}

// ColumnNames renders a column list for log messages.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return names
}

// TradeRecord is one row of the raw P2P ledger. All fields are kept as the
// source delivered them; enrichment derives typed values alongside but never
// rewrites these.
type TradeRecord struct {
	OrderNumber   string `json:"order_number" db:"order_number"`
	OrderType     string `json:"order_type" db:"order_type"`
	AssetType     string `json:"asset_type" db:"asset_type"`
	FiatType      string `json:"fiat_type" db:"fiat_type"`
	TotalPrice    string `json:"total_price" db:"total_price"`
	Price         string `json:"price" db:"price"`
	Quantity      string `json:"quantity" db:"quantity"`
	Status        string `json:"status" db:"status"`
	MatchTimeUTC  string `json:"match_time_utc" db:"match_time_utc"`
	PaymentMethod string `json:"payment_method" db:"payment_method"`
	MakerFee      string `json:"maker_fee" db:"maker_fee"`
	TakerFee      string `json:"taker_fee" db:"taker_fee"`
	Counterparty  string `json:"counterparty" db:"counterparty"`
}

// EnrichedRecord carries a raw record plus its derived typed fields.
// Every derived numeric is either a finite float or nil; aggregations skip
// nils instead of coercing them to zero.
type EnrichedRecord struct {
	TradeRecord

	QuantityNum   *float64 `json:"quantity_num"`
	PriceNum      *float64 `json:"price_num"`
	TotalPriceNum *float64 `json:"total_price_num"`
	MakerFeeNum   *float64 `json:"maker_fee_num"`
	TakerFeeNum   *float64 `json:"taker_fee_num"`

	// TotalFee treats a missing maker or taker fee as zero. This is the one
	// deliberate zero-fill in the model.
	TotalFee float64 `json:"total_fee"`

	TotalPriceUSD *float64 `json:"total_price_usd_equivalent"`

	MatchTimeParsed *time.Time `json:"match_time_parsed"`
	MatchTimeLocal  *time.Time `json:"match_time_local"`

	// Valid only when MatchTimeLocal is non-nil.
	HourLocal    int    `json:"hour_local"`
	WeekdayLocal int    `json:"weekday_local"` // ISO: Monday=1 .. Sunday=7
	Year         int    `json:"year"`
	YearMonth    string `json:"year_month"` // "YYYY-MM"
}

// HasCounterparty reports whether the record names a usable counterparty.
func (r *EnrichedRecord) HasCounterparty() bool {
	return strings.TrimSpace(r.Counterparty) != ""
}

// Dataset is the unit the analytics pipeline operates on: an immutable set
// of records plus the descriptor of the columns they actually carry.
// Analyses consume a Dataset and produce independent outputs; none mutates
// the records.
type Dataset struct {
	Columns ColumnSet
	Records []EnrichedRecord

	// DroppedRows counts records removed because their timestamp failed to
	// parse. Kept for diagnostics; enrichment is the only place rows are
	// intentionally removed.
	DroppedRows int
}

// Enriched reports whether derived columns are already present, which makes
// a further enrichment pass a no-op.
func (ds *Dataset) Enriched() bool {
	return ds.Columns.Has(ColTotalPriceNum) && ds.Columns.Has(ColMatchTimeLocal)
}

// TradeFilter narrows a ledger query in the trade store.
type TradeFilter struct {
	FiatType  string
	AssetType string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}
