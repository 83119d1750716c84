package handler

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/contact-mailer-api/internal/dto"
)

// LoadStaticPage reads the document served on GET / outside production.
func LoadStaticPage(path string) ([]byte, error) {
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load static page: %w", err)
	}
	return page, nil
}

// StaticPage serves a document that was loaded once at startup.
func StaticPage(page []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(fiber.StatusOK).Send(page)
	}
}

// RunningStatus answers with the production liveness marker.
func RunningStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(dto.StatusResponse{Status: "running"})
	}
}
