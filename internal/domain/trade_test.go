package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnSetMissing(t *testing.T) {
	cs := NewColumnSet(ColOrderNumber, ColTotalPrice)

	assert.Empty(t, cs.Missing(ColOrderNumber))
	assert.Equal(t, []Column{ColCounterparty}, cs.Missing(ColOrderNumber, ColCounterparty))
}

func TestColumnSetCloneIsIndependent(t *testing.T) {
	cs := NewColumnSet(ColOrderNumber)
	clone := cs.Clone()
	clone.Add(ColCounterparty)

	assert.True(t, clone.Has(ColCounterparty))
	assert.False(t, cs.Has(ColCounterparty))
}

func TestDatasetEnriched(t *testing.T) {
	ds := &Dataset{Columns: NewColumnSet(ColOrderNumber, ColTotalPrice)}
	assert.False(t, ds.Enriched())

	ds.Columns.Add(ColTotalPriceNum)
	assert.False(t, ds.Enriched(), "time features still missing")

	ds.Columns.Add(ColMatchTimeLocal)
	assert.True(t, ds.Enriched())
}

func TestHasCounterparty(t *testing.T) {
	rec := EnrichedRecord{TradeRecord: TradeRecord{Counterparty: "  "}}
	assert.False(t, rec.HasCounterparty())

	rec.Counterparty = "alice"
	assert.True(t, rec.HasCounterparty())
}
