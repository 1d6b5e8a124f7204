package ingestion

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// WorkerPool ingests multiple export files concurrently: each job parses
// one file and bulk-loads its rows.
type WorkerPool struct {
	workers  int
	parser   *Parser
	loader   *BulkLoader
	jobQueue chan Job
	wg       sync.WaitGroup
}

type Job struct {
	FilePath string
	Result   chan<- JobResult
}

type JobResult struct {
	FilePath     string
	RecordsCount int64
	ParseErrors  int
	Error        error
}

func NewWorkerPool(workers int, parser *Parser, loader *BulkLoader) *WorkerPool {
	return &WorkerPool{
		workers:  workers,
		parser:   parser,
		loader:   loader,
		jobQueue: make(chan Job, workers*2),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *WorkerPool) Submit(job Job) {
	wp.jobQueue <- job
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processFile(ctx, job.FilePath)
			job.Result <- result
		}
	}
}

func (wp *WorkerPool) processFile(ctx context.Context, filePath string) JobResult {

	file, err := os.Open(filePath)
	if err != nil {
		return JobResult{
			FilePath: filePath,
			Error:    fmt.Errorf("opening file: %w", err),
		}
	}
	defer file.Close()

	parseResult, err := wp.parser.ParseFile(ctx, file)
	if err != nil {
		return JobResult{
			FilePath: filePath,
			Error:    fmt.Errorf("parsing file: %w", err),
		}
	}

	count, err := wp.loader.LoadTradesConcurrent(ctx, parseResult.Records)
	if err != nil {
		return JobResult{
			FilePath:     filePath,
			RecordsCount: count,
			ParseErrors:  len(parseResult.Errors),
			Error:        fmt.Errorf("loading trades: %w", err),
		}
	}

	return JobResult{
		FilePath:     filePath,
		RecordsCount: count,
		ParseErrors:  len(parseResult.Errors),
	}
}
