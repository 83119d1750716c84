package utils

import "github.com/gofiber/fiber/v2"

// Error codes returned to API clients.
const (
	CodeMalformedRequest     = "MALFORMED_REQUEST"
	CodeInvalidRecaptcha     = "INVALID_RECAPTCHA"
	CodeErrorRecaptcha       = "ERROR_RECAPTCHA"
	CodeRecaptchaUnavailable = "RECAPTCHA_UNAVAILABLE"
	CodeErrorEmail           = "ERROR_EMAIL"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeInternal             = "INTERNAL_ERROR"
)

// APIResponse describes the envelope used by the service's informational endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// SuccessResponse is the body of an accepted contact submission.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// SendSuccess sends a successful JSON envelope with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}

	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendAccepted writes the bare {"success":true} body.
func SendAccepted(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponse{Success: true})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, code, message string) error {
	if code == "" {
		code = CodeInternal
	}
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(ErrorResponse{
		ErrorCode: code,
		Message:   message,
	})
}
