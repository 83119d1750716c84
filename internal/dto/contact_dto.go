package dto

// ContactRequest is the contact form as posted by the page. Fields other than
// the challenge token are relayed as-is.
type ContactRequest struct {
	Name           string `json:"name" form:"name"`
	Email          string `json:"email" form:"email"`
	Message        string `json:"message" form:"message"`
	RecaptchaToken string `json:"g-recaptcha-response" form:"g-recaptcha-response" validate:"required"`
	RemoteIP       string `json:"-" form:"-"`
}

// ContactResponse is returned once the message has been handed to the relay.
type ContactResponse struct {
	Success bool `json:"success"`
}

// StatusResponse is the liveness marker served on GET / in production.
type StatusResponse struct {
	Status string `json:"status"`
}
