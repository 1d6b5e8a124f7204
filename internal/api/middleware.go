package api

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

const requestIDHeader = "X-Request-ID"

// PrometheusMiddleware records every served request into the shared
// api_http_* metric families.
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		timer := metrics.NewTimer()

		err := c.Next()

		metrics.RecordHTTPRequest(
			c.Method(),
			c.Route().Path,
			strconv.Itoa(c.Response().StatusCode()),
			timer.Elapsed().Seconds(),
		)

		return err
	}
}

// RateLimiter caps each client IP at 100 requests per minute. Report builds
// are expensive enough that an unthrottled client could keep the pipeline
// busy on cache misses alone.
func RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               100,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:     "too many requests",
				Code:      fiber.StatusTooManyRequests,
				RequestID: getRequestID(c),
				Timestamp: time.Now(),
			})
		},
	})
}

// ErrorHandler converts errors escaping a handler into the standard error
// envelope, keeping the request id attached.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := "internal server error"
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		return c.Status(code).JSON(ErrorResponse{
			Error:     message,
			Code:      code,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}
}

// RequestID propagates the caller's request id, or mints one, so log lines
// and error envelopes for one request can be correlated.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}

		c.Set(requestIDHeader, requestID)
		c.Locals("requestID", requestID)

		return c.Next()
	}
}

func generateRequestID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), randomString(8))
}

func randomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
