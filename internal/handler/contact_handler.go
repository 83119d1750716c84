package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/contact-mailer-api/internal/dto"
	"github.com/noah-isme/contact-mailer-api/internal/service"
	"github.com/noah-isme/contact-mailer-api/internal/utils"
)

// ContactHandler handles contact submissions.
type ContactHandler struct {
	service service.ContactService
	logger  zerolog.Logger
}

// NewContactHandler constructs a contact handler.
func NewContactHandler(service service.ContactService, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		service: service,
		logger:  logger.With().Str("component", "contact_handler").Logger(),
	}
}

// Register wires contact routes.
func (h *ContactHandler) Register(router fiber.Router) {
	router.Post("/", h.submit)
}

func (h *ContactHandler) submit(c *fiber.Ctx) error {
	payload, err := parseSubmission(c)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("failed to parse contact submission")
		return utils.SendError(c, fiber.StatusBadRequest, utils.CodeMalformedRequest, "Malformed request body")
	}
	payload.RemoteIP = c.IP()

	response, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecaptchaMissing):
			return utils.SendError(c, fiber.StatusPreconditionFailed, utils.CodeInvalidRecaptcha, "Invalid recaptcha")
		case errors.Is(err, service.ErrRecaptchaRejected):
			return utils.SendError(c, fiber.StatusUnauthorized, utils.CodeErrorRecaptcha, "Error trying to verify recaptcha")
		case errors.Is(err, service.ErrRecaptchaUnavailable):
			return utils.SendError(c, fiber.StatusBadGateway, utils.CodeRecaptchaUnavailable, "Recaptcha verification service unavailable")
		case errors.Is(err, service.ErrEmailDelivery):
			return utils.SendError(c, fiber.StatusInternalServerError, utils.CodeErrorEmail, "Error trying to send the email")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to process contact submission")
			return utils.SendError(c, fiber.StatusInternalServerError, utils.CodeInternal, "Internal server error")
		}
	}

	if !response.Success {
		return utils.SendError(c, fiber.StatusInternalServerError, utils.CodeErrorEmail, "Error trying to send the email")
	}

	return utils.SendAccepted(c)
}

// parseSubmission decodes the form body. Requests without a Content-Type are
// read as URL-encoded forms.
func parseSubmission(c *fiber.Ctx) (dto.ContactRequest, error) {
	var payload dto.ContactRequest
	if len(c.Request().Header.ContentType()) == 0 {
		c.Request().Header.SetContentType(fiber.MIMEApplicationForm)
	}
	if err := c.BodyParser(&payload); err != nil {
		return dto.ContactRequest{}, err
	}
	return payload, nil
}
