package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/contact-mailer-api/internal/dto"
	"github.com/noah-isme/contact-mailer-api/internal/models"
	"github.com/noah-isme/contact-mailer-api/internal/observability"
	"github.com/noah-isme/contact-mailer-api/pkg/mailer"
	"github.com/noah-isme/contact-mailer-api/pkg/recaptcha"
)

var (
	// ErrRecaptchaMissing indicates the submission carried no challenge token.
	ErrRecaptchaMissing = errors.New("recaptcha token missing")
	// ErrRecaptchaRejected indicates the verification service refused the token.
	ErrRecaptchaRejected = errors.New("recaptcha token rejected")
	// ErrRecaptchaUnavailable indicates no verdict could be obtained.
	ErrRecaptchaUnavailable = errors.New("recaptcha verification unavailable")
	// ErrEmailDelivery indicates the relay did not accept the message.
	ErrEmailDelivery = errors.New("email delivery failed")
)

// RecaptchaVerifier checks challenge tokens.
type RecaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (recaptcha.Result, error)
}

// ContactDelivery defines a transport to deliver contact messages.
type ContactDelivery interface {
	Deliver(ctx context.Context, message models.OutboundMessage) error
}

// ContactService exposes the contact submission workflow.
type ContactService interface {
	Submit(ctx context.Context, req dto.ContactRequest) (dto.ContactResponse, error)
}

// ContactOptions tunes the submission workflow.
type ContactOptions struct {
	// DeliveryTimeout bounds the relay hand-off. Zero disables the bound.
	DeliveryTimeout time.Duration
	// Sanitize strips markup from the name and message before relaying.
	Sanitize bool
}

type contactService struct {
	verifier  RecaptchaVerifier
	delivery  ContactDelivery
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	options   ContactOptions
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewContactService constructs a contact submission service.
func NewContactService(verifier RecaptchaVerifier, delivery ContactDelivery, validate *validator.Validate, opts ContactOptions, logger zerolog.Logger) ContactService {
	if validate == nil {
		validate = validator.New()
	}
	return &contactService{
		verifier:  verifier,
		delivery:  delivery,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		options:   opts,
		logger:    logger.With().Str("component", "contact_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/contact-mailer-api/internal/service/contact"),
	}
}

func (s *contactService) Submit(ctx context.Context, req dto.ContactRequest) (dto.ContactResponse, error) {
	ctx, span := s.tracer.Start(ctx, "contact.submit")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "recaptcha token missing")
		observability.ContactSubmissions().WithLabelValues("invalid_recaptcha").Inc()
		return dto.ContactResponse{}, ErrRecaptchaMissing
	}

	if err := s.verify(ctx, span, req); err != nil {
		return dto.ContactResponse{}, err
	}

	message := s.compose(req)
	span.SetAttributes(attribute.Int("contact.body_bytes", len(message.Body)))

	if err := s.deliver(ctx, message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		observability.ContactSubmissions().WithLabelValues("email_error").Inc()
		s.logger.Error().Err(err).Str("email", mailer.MaskAddress(message.Recipient)).Msg("contact delivery failed")
		return dto.ContactResponse{}, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	observability.ContactSubmissions().WithLabelValues("sent").Inc()
	s.logger.Info().Str("email", mailer.MaskAddress(message.Recipient)).Msg("contact submission relayed")
	span.SetStatus(codes.Ok, "delivered")

	return dto.ContactResponse{Success: true}, nil
}

func (s *contactService) verify(ctx context.Context, span trace.Span, req dto.ContactRequest) error {
	result, err := s.verifier.Verify(ctx, req.RecaptchaToken, req.RemoteIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recaptcha unavailable")
		observability.RecaptchaVerifications().WithLabelValues("unavailable").Inc()
		observability.ContactSubmissions().WithLabelValues("recaptcha_unavailable").Inc()
		s.logger.Error().Err(err).Msg("recaptcha verification failed")
		return fmt.Errorf("%w: %v", ErrRecaptchaUnavailable, err)
	}

	if !result.Success {
		span.SetStatus(codes.Error, "recaptcha rejected")
		observability.RecaptchaVerifications().WithLabelValues("rejected").Inc()
		observability.ContactSubmissions().WithLabelValues("recaptcha_rejected").Inc()
		s.logger.Warn().Strs("error_codes", result.ErrorCodes).Msg("recaptcha token rejected")
		return ErrRecaptchaRejected
	}

	observability.RecaptchaVerifications().WithLabelValues("verified").Inc()
	span.SetAttributes(attribute.String("recaptcha.hostname", result.Hostname))
	return nil
}

func (s *contactService) compose(req dto.ContactRequest) models.OutboundMessage {
	name, message := req.Name, req.Message
	if s.options.Sanitize {
		name = sanitizeText(s.sanitizer, name)
		message = sanitizeText(s.sanitizer, message)
	}
	return models.NewOutboundMessage(name, req.Email, message)
}

func (s *contactService) deliver(ctx context.Context, message models.OutboundMessage) error {
	if s.options.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.DeliveryTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.delivery.Deliver(ctx, message)
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	observability.EmailDispatchDuration().WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return err
}
