package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/contact-mailer-api/internal/middleware"
	"github.com/noah-isme/contact-mailer-api/internal/utils"
)

func newApp() *fiber.App {
	logger := zerolog.Nop()
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	middleware.Register(app, middleware.Config{Logger: &logger})
	return app
}

func TestCorrelationIDGenerated(t *testing.T) {
	app := newApp()
	var seen, fromContext string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = middleware.GetCorrelationID(c)
		fromContext = middleware.CorrelationIDFromContext(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, fromContext)
	require.Equal(t, seen, resp.Header.Get(middleware.CorrelationHeader))
}

func TestCorrelationIDPropagated(t *testing.T) {
	app := newApp()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get(middleware.CorrelationHeader))
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	app := newApp()
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://portfolio.example")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	require.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), "POST")
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	app := newApp()
	app.Get("/boom", func(c *fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var payload utils.ErrorResponse
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, utils.CodeInternal, payload.ErrorCode)
}

func TestErrorHandlerNotFound(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var payload utils.ErrorResponse
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, utils.CodeNotFound, payload.ErrorCode)
}
