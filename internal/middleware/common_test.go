package middleware_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/terakoya-dev/terakoya-api/internal/middleware"
)

// Registers the pipeline the way the composition root does, with a pointer to
// an existing logger variable.
func TestRegisterPipeline(t *testing.T) {
	logger := zerolog.New(io.Discard)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/ping", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestRegisterPreservesIncomingCorrelationID(t *testing.T) {
	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCorrelationID(c))
	})

	req := httptest.NewRequest("GET", "/api/v1/ping", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "abc-123", string(body))
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
}
