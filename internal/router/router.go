package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/contact-mailer-api/internal/config"
	"github.com/noah-isme/contact-mailer-api/internal/handler"
	"github.com/noah-isme/contact-mailer-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ContactHandler *handler.ContactHandler
	// StaticPage is served on GET / outside production, even when empty. It is
	// ignored in production, where GET / reports the running status instead.
	StaticPage []byte
	// Relay feeds session usage into the health endpoint. Optional.
	Relay handler.RelayUsage
}

// Register wires the HTTP routes into the fiber application. The GET / handler
// is chosen here, once, from the configured environment.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if cfg.IsProduction() {
		app.Get("/", handler.RunningStatus())
	} else {
		app.Get("/", handler.StaticPage(deps.StaticPage))
	}

	if deps.ContactHandler != nil {
		deps.ContactHandler.Register(app)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Relay))

	app.Get("/metrics", observability.MetricsHandler())
}
