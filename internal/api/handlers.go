package api

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/internal/service"
	"github.com/jeovahfialho/p2p-analyzer/internal/storage/cache"
	"github.com/jeovahfialho/p2p-analyzer/internal/storage/postgres"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
)

type Handler struct {
	db               *postgres.DB
	cacheService     *cache.RedisCache
	reportService    *service.ReportService
	tradeService     *service.TradeService
	ingestionService *service.IngestionService
}

func NewHandler(
	db *postgres.DB,
	cacheService *cache.RedisCache,
	reportService *service.ReportService,
	tradeService *service.TradeService,
	ingestionService *service.IngestionService,
) *Handler {
	return &Handler{
		db:               db,
		cacheService:     cacheService,
		reportService:    reportService,
		tradeService:     tradeService,
		ingestionService: ingestionService,
	}
}

// parseFilter reads the report query parameters common to the report
// endpoints.
func parseFilter(c *fiber.Ctx) (domain.TradeFilter, error) {
	filter := domain.TradeFilter{
		FiatType:  c.Query("fiat"),
		AssetType: c.Query("asset"),
		Status:    c.Query("status"),
	}

	if dateStr := c.Query("start_date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return filter, fmt.Errorf("invalid start_date (use YYYY-MM-DD)")
		}
		filter.StartDate = &parsed
	}
	if dateStr := c.Query("end_date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return filter, fmt.Errorf("invalid end_date (use YYYY-MM-DD)")
		}
		filter.EndDate = &parsed
	}
	return filter, nil
}

func (h *Handler) GetReport(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     err.Error(),
			Code:      fiber.StatusBadRequest,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	report, err := h.reportService.GetReport(c.Context(), filter)
	if err != nil {
		logger.Error("failed to build report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to build report",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(report)
}

func (h *Handler) ListReportTables(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  fiber.StatusBadRequest,
		})
	}

	report, err := h.reportService.GetReport(c.Context(), filter)
	if err != nil {
		logger.Error("failed to build report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to build report",
			Code:  fiber.StatusInternalServerError,
		})
	}

	return c.JSON(fiber.Map{
		"tables": report.TableNames(),
		"count":  len(report.TableNames()),
	})
}

func (h *Handler) GetReportTable(c *fiber.Ctx) error {
	name := c.Params("name")

	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  fiber.StatusBadRequest,
		})
	}

	report, err := h.reportService.GetReport(c.Context(), filter)
	if err != nil {
		logger.Error("failed to build report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to build report",
			Code:  fiber.StatusInternalServerError,
		})
	}

	table, ok := (*report)[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: fmt.Sprintf("unknown table %s", name),
			Code:  fiber.StatusNotFound,
		})
	}

	return c.JSON(fiber.Map{
		"name":  name,
		"table": table,
	})
}

func (h *Handler) GetLedgerSummary(c *fiber.Ctx) error {
	count, err := h.tradeService.CountTrades(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to count trades",
			Code:  fiber.StatusInternalServerError,
		})
	}

	fiats, err := h.tradeService.ListFiats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to list fiats",
			Code:  fiber.StatusInternalServerError,
		})
	}

	return c.JSON(LedgerSummaryResponse{
		TotalTrades: count,
		Fiats:       fiats,
	})
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]ServiceHealth)

	dbStart := time.Now()
	if err := h.db.HealthCheck(ctx); err != nil {
		services["database"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["database"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	redisStart := time.Now()
	if h.cacheService == nil {
		services["redis"] = ServiceHealth{Status: "disabled"}
	} else if err := h.cacheService.HealthCheck(ctx); err != nil {
		services["redis"] = ServiceHealth{
			Status: "unhealthy",
			Error:  err.Error(),
		}
	} else {
		services["redis"] = ServiceHealth{
			Status:  "healthy",
			Latency: time.Since(redisStart).String(),
		}
	}

	status := "ready"
	for _, svc := range services {
		if svc.Status != "healthy" {
			status = "not_ready"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  services,
	}

	if status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func (h *Handler) InvalidateCache(c *fiber.Ctx) error {
	pattern := c.Params("pattern", "*")

	if h.cacheService == nil {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "cache disabled, nothing to invalidate",
		})
	}

	if err := h.cacheService.DeletePattern(c.Context(), pattern); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "failed to invalidate cache",
			Code:      fiber.StatusInternalServerError,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("cache invalidated for pattern: %s", pattern),
	})
}

func (h *Handler) GetSystemStats(c *fiber.Ctx) error {

	dbStats := h.db.Stats()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := SystemStatsResponse{
		Database: DatabaseStats{
			ActiveConnections: dbStats.AcquiredConns(),
			IdleConnections:   dbStats.IdleConns(),
			TotalConnections:  dbStats.TotalConns(),
			WaitCount:         dbStats.EmptyAcquireCount(),
			WaitDuration:      dbStats.AcquireDuration().String(),
		},
		Cache: CacheStats{
			MemoryUsed: fmt.Sprintf("%d MB", m.Alloc/1024/1024),
		},
		API: APIStats{
			ActiveGoroutines: runtime.NumGoroutine(),
		},
	}

	return c.JSON(response)
}

func (h *Handler) LoadDataFromFile(c *fiber.Ctx) error {
	var req LoadDataRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
			Code:  fiber.StatusBadRequest,
		})
	}

	if req.Async {

		jobID := generateJobID()

		go func() {
			ctx := context.Background()
			result, err := h.ingestionService.ProcessFile(ctx, req.FilePath)

			if err != nil {
				logger.Error("failed to process file",
					zap.String("file", req.FilePath),
					zap.String("job_id", jobID),
					zap.Error(err))
				return
			}

			logger.Info("file processed",
				zap.String("file", req.FilePath),
				zap.String("job_id", jobID),
				zap.Int64("records", result.RecordsCount))

			if err := h.reportService.InvalidateReports(ctx); err != nil {
				logger.Warn("failed to invalidate report cache", zap.Error(err))
			}
		}()

		return c.JSON(LoadDataResponse{
			JobID:   jobID,
			Status:  "processing",
			Message: "processing started",
		})
	}

	result, err := h.ingestionService.ProcessFile(c.Context(), req.FilePath)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to process file",
			Code:  fiber.StatusInternalServerError,
		})
	}

	if err := h.reportService.InvalidateReports(c.Context()); err != nil {
		logger.Warn("failed to invalidate report cache", zap.Error(err))
	}

	return c.JSON(LoadDataResponse{
		RecordsCount: result.RecordsCount,
		ParseErrors:  result.ParseErrors,
		Status:       "completed",
		Message:      "file processed",
	})
}

func generateJobID() string {
	return fmt.Sprintf("job_%d_%s", time.Now().Unix(), randomString(8))
}

func getRequestID(c *fiber.Ctx) string {
	if id := c.Locals("requestID"); id != nil {
		return id.(string)
	}
	return ""
}
