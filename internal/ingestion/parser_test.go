package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
)

func testMapping() map[domain.Column]string {
	return map[domain.Column]string{
		domain.ColOrderNumber:   "Order Number",
		domain.ColOrderType:     "Order Type",
		domain.ColAssetType:     "Asset Type",
		domain.ColFiatType:      "Fiat Type",
		domain.ColTotalPrice:    "Total Price",
		domain.ColPrice:         "Price",
		domain.ColQuantity:      "Quantity",
		domain.ColCounterparty:  "Counterparty",
		domain.ColStatus:        "Status",
		domain.ColMatchTimeUTC:  "Match time(UTC)",
		domain.ColPaymentMethod: "Payment Method",
		domain.ColMakerFee:      "Maker Fee",
		domain.ColTakerFee:      "Taker Fee",
	}
}

func TestParseFileMapsHeaders(t *testing.T) {
	csv := strings.Join([]string{
		"Order Number,Order Type,Asset Type,Fiat Type,Total Price,Price,Quantity,Counterparty,Status,Match time(UTC),Payment Method,Maker Fee,Taker Fee",
		`20001,BUY,USDT,UYU,"4.000,50",40,100,alice,Completed,2024-03-15 14:30:00,Bank,0,0`,
		"20002,SELL,USDT,USD,105,1.05,100,bob,Completed,2024-03-15 15:00:00,Cash,0,0",
	}, "\n")

	parser := NewParser(1000, 1, testMapping())
	result, err := parser.ParseFile(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Empty(t, result.Errors)

	byOrder := make(map[string]domain.TradeRecord)
	for _, rec := range result.Records {
		byOrder[rec.OrderNumber] = rec
	}

	first := byOrder["20001"]
	assert.Equal(t, "BUY", first.OrderType)
	assert.Equal(t, "UYU", first.FiatType)
	assert.Equal(t, "4.000,50", first.TotalPrice, "raw values are kept verbatim")
	assert.Equal(t, "alice", first.Counterparty)
	assert.Equal(t, "2024-03-15 14:30:00", first.MatchTimeUTC)

	second := byOrder["20002"]
	assert.Equal(t, "bob", second.Counterparty)

	for col := range testMapping() {
		assert.True(t, result.Columns.Has(col), "column %s", col)
	}
}

func TestParseFilePartialHeader(t *testing.T) {
	csv := strings.Join([]string{
		"Order Number,Total Price,Match time(UTC)",
		"20001,100,2024-03-15 14:30:00",
	}, "\n")

	parser := NewParser(1000, 1, testMapping())
	result, err := parser.ParseFile(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	assert.True(t, result.Columns.Has(domain.ColOrderNumber))
	assert.True(t, result.Columns.Has(domain.ColTotalPrice))
	assert.False(t, result.Columns.Has(domain.ColCounterparty))
	assert.False(t, result.Columns.Has(domain.ColPrice))

	assert.Equal(t, "", result.Records[0].Counterparty)
}

func TestParseFileUnknownHeader(t *testing.T) {
	csv := "Foo,Bar\n1,2\n"

	parser := NewParser(1000, 1, testMapping())
	_, err := parser.ParseFile(context.Background(), strings.NewReader(csv))
	assert.Error(t, err)
}

func TestParseFileRowsMissingOrderNumber(t *testing.T) {
	csv := strings.Join([]string{
		"Order Number,Total Price",
		"20001,100",
		",200",
	}, "\n")

	parser := NewParser(1000, 1, testMapping())
	result, err := parser.ParseFile(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Len(t, result.Errors, 1)
}

func TestParseResultDataset(t *testing.T) {
	csv := strings.Join([]string{
		"Order Number,Total Price",
		"20001,100",
	}, "\n")

	parser := NewParser(1000, 1, testMapping())
	result, err := parser.ParseFile(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	ds := result.Dataset()
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "20001", ds.Records[0].OrderNumber)
	assert.True(t, ds.Columns.Has(domain.ColOrderNumber))
	assert.False(t, ds.Enriched())
}

func BenchmarkParser(b *testing.B) {

	csvData := generateTestCSV(100000)

	benchmarks := []struct {
		name      string
		batchSize int
		workers   int
	}{
		{"SingleWorker", 1000, 1},
		{"FourWorkers", 1000, 4},
		{"EightWorkers", 1000, 8},
		{"LargeBatch", 10000, 4},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			parser := NewParser(bm.batchSize, bm.workers, testMapping())

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				reader := bytes.NewReader([]byte(csvData))
				ctx := context.Background()

				_, err := parser.ParseFile(ctx, reader)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func generateTestCSV(lines int) string {
	var sb strings.Builder
	sb.WriteString("Order Number,Order Type,Asset Type,Fiat Type,Total Price,Price,Quantity,Counterparty,Status,Match time(UTC),Payment Method,Maker Fee,Taker Fee\n")

	counterparties := []string{"alice", "bob", "carol", "dave"}

	for i := 0; i < lines; i++ {
		cp := counterparties[i%len(counterparties)]
		price := fmt.Sprintf("%.2f", 38.0+float64(i%8))
		total := fmt.Sprintf("%d", 1000+i%5000)

		sb.WriteString(fmt.Sprintf(
			"%d,BUY,USDT,UYU,%s,%s,100,%s,Completed,2024-03-15 14:30:00,Bank,0,0\n",
			20000+i, total, price, cp,
		))
	}

	return sb.String()
}
