package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/contact-mailer-api/internal/config"
	"github.com/noah-isme/contact-mailer-api/internal/utils"
)

// RelayUsage reports how busy the outbound mail relay is.
type RelayUsage interface {
	ActiveSessions() int
	MaxSessions() int
}

// RelayHealth describes the mail relay in the health payload.
type RelayHealth struct {
	Driver         string `json:"driver"`
	ActiveSessions int    `json:"active_sessions"`
	MaxSessions    int    `json:"max_sessions"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string      `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	Service     string      `json:"service"`
	Environment string      `json:"environment"`
	Relay       RelayHealth `json:"relay"`
}

// HealthCheck reports process liveness and relay session usage. The status
// turns "busy" while every relay session is in use; it never probes the relay.
func HealthCheck(cfg config.Config, relay RelayUsage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Relay:       RelayHealth{Driver: cfg.Mail.Driver, MaxSessions: cfg.Mail.MaxSessions},
		}

		if relay != nil {
			payload.Relay.ActiveSessions = relay.ActiveSessions()
			payload.Relay.MaxSessions = relay.MaxSessions()
			if payload.Relay.MaxSessions > 0 && payload.Relay.ActiveSessions >= payload.Relay.MaxSessions {
				payload.Status = "busy"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
