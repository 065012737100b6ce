package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracingApp() *fiber.App {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetTraceID(c))
	})
	return app
}

func TestTracingGeneratesID(t *testing.T) {
	app := tracingApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	id := resp.Header.Get("X-Trace-Id")
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestTracingReusesInboundID(t *testing.T) {
	app := tracingApp()
	inbound := uuid.New().String()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", inbound)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, inbound, resp.Header.Get("X-Trace-Id"))
}

func TestTracingRejectsGarbageInboundID(t *testing.T) {
	app := tracingApp()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", "not-a-uuid")
	resp, err := app.Test(req)
	require.NoError(t, err)
	id := resp.Header.Get("X-Trace-Id")
	assert.NotEqual(t, "not-a-uuid", id)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}
