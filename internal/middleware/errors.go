package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/contact-mailer-api/internal/utils"
)

// ErrorHandler renders errors that escape handlers, including recovered
// panics, in the service's {error_code, message} shape.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		code := utils.CodeInternal
		message := "Internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			message = fiberErr.Message
			switch status {
			case fiber.StatusNotFound:
				code = utils.CodeNotFound
			case fiber.StatusMethodNotAllowed:
				code = utils.CodeMethodNotAllowed
			case fiber.StatusInternalServerError:
				code = utils.CodeInternal
			default:
				if status >= fiber.StatusBadRequest && status < fiber.StatusInternalServerError {
					code = utils.CodeMalformedRequest
				}
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("unhandled request error")
		}

		return utils.SendError(c, status, code, message)
	}
}
