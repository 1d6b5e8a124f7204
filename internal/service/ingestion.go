package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/ingestion"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
)

// IngestionService loads exchange export files into the ledger table.
type IngestionService struct {
	parser  *ingestion.Parser
	loader  *ingestion.BulkLoader
	workers int
}

func NewIngestionService(parser *ingestion.Parser, loader *ingestion.BulkLoader, workers int) *IngestionService {
	return &IngestionService{
		parser:  parser,
		loader:  loader,
		workers: workers,
	}
}

type ProcessFileResult struct {
	FilePath     string
	RecordsCount int64
	ParseErrors  int
}

func (s *IngestionService) ProcessFile(ctx context.Context, filePath string) (*ProcessFileResult, error) {
	logger.Info("processing file", zap.String("file", filePath))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	parseResult, err := s.parser.ParseFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	count, err := s.loader.LoadTradesConcurrent(ctx, parseResult.Records)
	if err != nil {
		return nil, fmt.Errorf("loading trades: %w", err)
	}

	logger.Info("file processed",
		zap.String("file", filePath),
		zap.Int64("records", count),
		zap.Int("parse_errors", len(parseResult.Errors)))

	return &ProcessFileResult{
		FilePath:     filePath,
		RecordsCount: count,
		ParseErrors:  len(parseResult.Errors),
	}, nil
}

// ProcessFiles ingests several files concurrently through the worker pool.
func (s *IngestionService) ProcessFiles(ctx context.Context, filePaths []string) ([]ingestion.JobResult, error) {
	if len(filePaths) == 0 {
		return nil, nil
	}

	pool := ingestion.NewWorkerPool(s.workers, s.parser, s.loader)
	pool.Start(ctx)

	resultCh := make(chan ingestion.JobResult, len(filePaths))
	for _, path := range filePaths {
		pool.Submit(ingestion.Job{FilePath: path, Result: resultCh})
	}

	results := make([]ingestion.JobResult, 0, len(filePaths))
	for range filePaths {
		select {
		case result := <-resultCh:
			results = append(results, result)
		case <-ctx.Done():
			pool.Stop()
			return results, ctx.Err()
		}
	}
	pool.Stop()

	return results, nil
}
