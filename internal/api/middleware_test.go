package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

func TestRequestIDGenerated(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(getRequestID(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.NotEmpty(t, string(body))
	assert.Equal(t, string(body), resp.Header.Get(requestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(requestIDHeader, "caller-id-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "caller-id-1", resp.Header.Get(requestIDHeader))
}

func TestErrorHandlerEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Use(ErrorHandler())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "teapot")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	var envelope ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "teapot", envelope.Error)
	assert.Equal(t, fiber.StatusTeapot, envelope.Code)
	assert.NotEmpty(t, envelope.RequestID)
}

func TestPrometheusMiddlewareCounts(t *testing.T) {
	app := fiber.New()
	app.Use(PrometheusMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	counter := metrics.HTTPRequests.WithLabelValues("GET", "/ping", "200")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
