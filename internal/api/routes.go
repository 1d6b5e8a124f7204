package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, handler *Handler) {
	app.Use(RequestID())
	app.Use(ErrorHandler())

	// Health checks and metrics stay outside rate limiting
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter())
	v1.Use(PrometheusMiddleware())

	report := v1.Group("/report")
	report.Get("/", handler.GetReport)
	report.Get("/tables", handler.ListReportTables)
	report.Get("/tables/:name", handler.GetReportTable)

	ledger := v1.Group("/ledger")
	ledger.Get("/summary", handler.GetLedgerSummary)

	admin := v1.Group("/admin")
	admin.Use(BasicAuth())
	admin.Delete("/cache/:pattern", handler.InvalidateCache)
	admin.Get("/stats", handler.GetSystemStats)
	admin.Post("/load", handler.LoadDataFromFile)
}

func BasicAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth != "Basic YWRtaW46c2VjcmV0" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
