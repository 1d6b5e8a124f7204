package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// Parser reads an exchange CSV export into raw trade records. Values are
// kept as the strings the export carried; numeric and time conversion is
// the enrichment stage's job.
type Parser struct {
	batchSize int
	workers   int
	mapping   map[domain.Column]string
}

func NewParser(batchSize, workers int, mapping map[domain.Column]string) *Parser {
	return &Parser{
		batchSize: batchSize,
		workers:   workers,
		mapping:   mapping,
	}
}

type ParseResult struct {
	Records []domain.TradeRecord
	Columns domain.ColumnSet
	Errors  []error
}

// Dataset wraps the parsed records in the shape the analysis pipeline
// consumes.
func (r *ParseResult) Dataset() *domain.Dataset {
	enriched := make([]domain.EnrichedRecord, len(r.Records))
	for i, rec := range r.Records {
		enriched[i] = domain.EnrichedRecord{TradeRecord: rec}
	}
	return &domain.Dataset{
		Columns: r.Columns.Clone(),
		Records: enriched,
	}
}

func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	layout := p.resolveHeader(header)
	if len(layout.indexes) == 0 {
		return nil, fmt.Errorf("no known columns in header %v", header)
	}

	jobs := make(chan []string, p.workers*2)
	results := make(chan *ParseResult, p.workers)

	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, layout, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)

		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := csvReader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}
				jobs <- record
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	finalResult := &ParseResult{
		Records: make([]domain.TradeRecord, 0, p.batchSize),
		Columns: layout.columns.Clone(),
		Errors:  make([]error, 0),
	}

	for result := range results {
		finalResult.Records = append(finalResult.Records, result.Records...)
		finalResult.Errors = append(finalResult.Errors, result.Errors...)
	}

	metrics.RecordsParsed.WithLabelValues("ok").Add(float64(len(finalResult.Records)))
	metrics.RecordsParsed.WithLabelValues("error").Add(float64(len(finalResult.Errors)))

	return finalResult, nil
}

// headerLayout records which canonical column sits at which CSV index.
type headerLayout struct {
	indexes map[domain.Column]int
	columns domain.ColumnSet
}

func (p *Parser) resolveHeader(header []string) headerLayout {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	layout := headerLayout{
		indexes: make(map[domain.Column]int),
		columns: domain.NewColumnSet(),
	}
	for col, name := range p.mapping {
		if idx, ok := byName[name]; ok {
			layout.indexes[col] = idx
			layout.columns.Add(col)
		}
	}
	return layout
}

func (p *Parser) worker(ctx context.Context, layout headerLayout, jobs <-chan []string,
	results chan<- *ParseResult, wg *sync.WaitGroup) {

	defer wg.Done()

	batch := &ParseResult{
		Records: make([]domain.TradeRecord, 0, p.batchSize),
	}

	for {
		select {
		case <-ctx.Done():
			if len(batch.Records) > 0 || len(batch.Errors) > 0 {
				results <- batch
			}
			return

		case record, ok := <-jobs:
			if !ok {
				if len(batch.Records) > 0 || len(batch.Errors) > 0 {
					results <- batch
				}
				return
			}

			trade, err := p.parseRecord(layout, record)
			if err != nil {
				batch.Errors = append(batch.Errors, err)
				continue
			}

			batch.Records = append(batch.Records, *trade)

			if len(batch.Records) >= p.batchSize {
				results <- batch
				batch = &ParseResult{
					Records: make([]domain.TradeRecord, 0, p.batchSize),
				}
			}
		}
	}
}

func (p *Parser) parseRecord(layout headerLayout, record []string) (*domain.TradeRecord, error) {
	field := func(col domain.Column) string {
		idx, ok := layout.indexes[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	trade := &domain.TradeRecord{
		OrderNumber:   field(domain.ColOrderNumber),
		OrderType:     field(domain.ColOrderType),
		AssetType:     field(domain.ColAssetType),
		FiatType:      field(domain.ColFiatType),
		TotalPrice:    field(domain.ColTotalPrice),
		Price:         field(domain.ColPrice),
		Quantity:      field(domain.ColQuantity),
		Counterparty:  field(domain.ColCounterparty),
		Status:        field(domain.ColStatus),
		MatchTimeUTC:  field(domain.ColMatchTimeUTC),
		PaymentMethod: field(domain.ColPaymentMethod),
		MakerFee:      field(domain.ColMakerFee),
		TakerFee:      field(domain.ColTakerFee),
	}
	if trade.OrderNumber == "" && layout.columns.Has(domain.ColOrderNumber) {
		return nil, fmt.Errorf("row without order number: %v", record)
	}
	return trade, nil
}
