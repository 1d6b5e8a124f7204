package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jeovahfialho/p2p-analyzer/internal/api"
	"github.com/jeovahfialho/p2p-analyzer/internal/config"
	"github.com/jeovahfialho/p2p-analyzer/internal/ingestion"
	"github.com/jeovahfialho/p2p-analyzer/internal/service"
	"github.com/jeovahfialho/p2p-analyzer/internal/storage/cache"
	"github.com/jeovahfialho/p2p-analyzer/internal/storage/postgres"
	pkglogger "github.com/jeovahfialho/p2p-analyzer/pkg/logger"
)

// @title P2P Trade Ledger Analyzer API
// @version 1.0
// @description Analytics over P2P trade ledger exports

// @contact.name API Support

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer pkglogger.Close()

	db, err := connectPostgres(cfg)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	cacheService := connectRedis(cfg)
	if cacheService != nil {
		defer cacheService.Close()
	}

	var redisClient *redis.Client
	if cacheService != nil {
		redisClient = cacheService.Client()
	}

	// Services
	tradeService := service.NewTradeService(db.Pool())
	analysisService, err := service.NewAnalysisService(cfg.AnalyticsParams())
	if err != nil {
		log.Fatal("failed to build analysis service:", err)
	}
	reportService := service.NewReportService(tradeService, analysisService, redisClient, cfg.CacheTTL)

	// Ingestion
	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers, config.DefaultColumnMapping())
	loader := ingestion.NewBulkLoader(db.Pool(), cfg.BatchSize)
	ingestionService := service.NewIngestionService(parser, loader, cfg.Workers)

	// Handler
	handler := api.NewHandler(
		db,
		cacheService,
		reportService,
		tradeService,
		ingestionService,
	)

	// Fiber app
	app := fiber.New(fiber.Config{
		Prefork:                 false,
		ServerHeader:            "P2P-Analyzer",
		DisableStartupMessage:   false,
		AppName:                 "P2P Trade Ledger Analyzer v1.0.0",
		ReadTimeout:             cfg.APIReadTimeout,
		WriteTimeout:            cfg.APIWriteTimeout,
		IdleTimeout:             120 * time.Second,
		ReadBufferSize:          8192,
		WriteBufferSize:         8192,
		CompressedFileSuffix:    ".gz",
		ProxyHeader:             "X-Forwarded-For",
		EnableTrustedProxyCheck: true,
		BodyLimit:               10 * 1024 * 1024, // 10MB
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Setup routes
	api.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("Starting server on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatal("Server error:", err)
	}
}

func connectPostgres(cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("testing connection: %w", err)
	}

	log.Println("connected to PostgreSQL")
	return db, nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Printf("redis not available: %v (continuing without cache)", err)
		return nil
	}

	log.Println("connected to Redis")
	return redisCache
}
