package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jeovahfialho/p2p-analyzer/internal/config"
	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/internal/ingestion"
	"github.com/jeovahfialho/p2p-analyzer/internal/service"
	"github.com/jeovahfialho/p2p-analyzer/internal/storage/cache"
	"github.com/jeovahfialho/p2p-analyzer/internal/storage/postgres"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "p2p-analyzer",
		Short: "P2P Trade Ledger Analyzer CLI",
		Long: `CLI for analyzing P2P trade ledger exports.
Loads CSV exports into the database and runs session, counterparty and
risk analytics over them.`,
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List export files available to load",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("dir")
			return listFiles(dataDir)
		},
	}

	listCmd.Flags().StringP("dir", "d", "./data", "Data directory")

	var loadCmd = &cobra.Command{
		Use:   "load [files...]",
		Short: "Load CSV export files into the database",
		Long: `Loads ledger CSV exports into the database.
Accepts multiple files and wildcards (e.g. data/*.csv)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadFiles(args)
		},
	}

	var analyzeCmd = &cobra.Command{
		Use:   "analyze [file]",
		Short: "Run the full analysis and print the report",
		Long: `Builds the analytics report. Given a file argument the CSV is
analyzed directly; without one the trades already loaded in the database
are used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, _ := cmd.Flags().GetString("table")
			fiat, _ := cmd.Flags().GetString("fiat")
			if len(args) == 1 {
				return analyzeFile(args[0], table)
			}
			return analyzeDatabase(fiat, table)
		},
	}

	analyzeCmd.Flags().StringP("table", "t", "", "Print only the named table")
	analyzeCmd.Flags().StringP("fiat", "f", "", "Restrict database analysis to one fiat")

	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	rootCmd.AddCommand(listCmd, loadCmd, analyzeCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func listFiles(dataDir string) error {
	fmt.Printf("Listing files in %s\n\n", dataDir)

	csvFiles, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return err
	}

	if len(csvFiles) == 0 {
		fmt.Println("No files found")
		return nil
	}

	totalSize := int64(0)
	fmt.Printf("%d CSV files:\n", len(csvFiles))
	for _, file := range csvFiles {
		info, _ := os.Stat(file)
		size := info.Size()
		totalSize += size

		fmt.Printf("  - %-40s %10s\n",
			filepath.Base(file),
			formatBytes(size))
	}
	fmt.Printf("\nTotal size: %s\n", formatBytes(totalSize))

	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db.Pool(), nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		fmt.Printf("Warning: redis not available, continuing without cache: %v\n", err)
		return nil
	}
	return redisCache
}

func checkHealth() error {
	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("Checking system health...")
	fmt.Println()

	fmt.Print("PostgreSQL: ")
	pool, err := connectDB(cfg)
	if err != nil {
		fmt.Printf("error: %v\n", err)
	} else {
		defer pool.Close()

		var result int
		err = pool.QueryRow(ctx, "SELECT 1").Scan(&result)
		if err != nil {
			fmt.Printf("query error: %v\n", err)
		} else {
			fmt.Println("OK")
		}
	}

	fmt.Print("Redis: ")
	redisClient := connectRedis(cfg)
	if redisClient == nil {
		fmt.Println("not available")
	} else {
		defer redisClient.Close()

		err = redisClient.HealthCheck(ctx)
		if err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Println("OK")
		}
	}

	return nil
}

func loadFiles(files []string) error {
	ctx := context.Background()
	cfg := config.Load()

	pool, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers, config.DefaultColumnMapping())
	loader := ingestion.NewBulkLoader(pool, cfg.BatchSize)

	workerPool := ingestion.NewWorkerPool(cfg.Workers, parser, loader)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	results := make(chan ingestion.JobResult, len(files))

	fmt.Printf("Loading %d file(s)...\n\n", len(files))

	for _, file := range files {
		job := ingestion.Job{
			FilePath: file,
			Result:   results,
		}
		workerPool.Submit(job)
	}

	var totalRecords int64
	for i := 0; i < len(files); i++ {
		result := <-results
		if result.Error != nil {
			fmt.Printf("error in %s: %v\n", result.FilePath, result.Error)
		} else {
			fmt.Printf("loaded %d records from %s (%d rows unparsable)\n",
				result.RecordsCount, result.FilePath, result.ParseErrors)
			totalRecords += result.RecordsCount
		}
	}

	fmt.Printf("\nTotal: %d records loaded\n", totalRecords)

	return nil
}

func analyzeFile(path, table string) error {
	ctx := context.Background()
	cfg := config.Load()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers, config.DefaultColumnMapping())
	parseResult, err := parser.ParseFile(ctx, file)
	if err != nil {
		return fmt.Errorf("parsing file: %w", err)
	}

	fmt.Printf("Parsed %d records (%d rows unparsable)\n\n",
		len(parseResult.Records), len(parseResult.Errors))

	analysisService, err := service.NewAnalysisService(cfg.AnalyticsParams())
	if err != nil {
		return err
	}

	report := analysisService.BuildReport(parseResult.Dataset())
	return printReport(report, table)
}

func analyzeDatabase(fiat, table string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.Load()

	pool, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	tradeService := service.NewTradeService(pool)
	analysisService, err := service.NewAnalysisService(cfg.AnalyticsParams())
	if err != nil {
		return err
	}
	reportService := service.NewReportService(tradeService, analysisService, nil, cfg.CacheTTL)

	report, err := reportService.GetReport(ctx, domain.TradeFilter{FiatType: fiat})
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	return printReport(report, table)
}

func printReport(report *domain.Report, only string) error {
	names := report.TableNames()

	if only != "" {
		table, ok := (*report)[only]
		if !ok {
			return fmt.Errorf("unknown table %q (available: %v)", only, names)
		}
		printTable(only, table)
		return nil
	}

	for _, name := range names {
		printTable(name, (*report)[name])
		fmt.Println()
	}
	return nil
}

func printTable(name string, table domain.Table) {
	fmt.Printf("== %s (%d rows) ==\n", name, len(table.Rows))
	if table.Empty() {
		fmt.Println("  (empty)")
		return
	}

	fmt.Print("  ")
	for _, col := range table.Columns {
		fmt.Printf("%s  ", col)
	}
	fmt.Println()

	const maxRows = 20
	for i, row := range table.Rows {
		if i >= maxRows {
			fmt.Printf("  ... and %d more rows\n", len(table.Rows)-maxRows)
			break
		}
		fmt.Print("  ")
		for _, cell := range row {
			if cell == nil {
				fmt.Print("-  ")
				continue
			}
			fmt.Printf("%v  ", cell)
		}
		fmt.Println()
	}
}
