package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/contact-mailer-api/internal/config"
	"github.com/noah-isme/contact-mailer-api/internal/handler"
	"github.com/noah-isme/contact-mailer-api/internal/middleware"
	"github.com/noah-isme/contact-mailer-api/internal/router"
	"github.com/noah-isme/contact-mailer-api/internal/service"
	"github.com/noah-isme/contact-mailer-api/pkg/mailer"
	"github.com/noah-isme/contact-mailer-api/pkg/recaptcha"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)

	verifier, err := recaptcha.New(recaptcha.Config{
		Secret:    cfg.Recaptcha.Secret,
		VerifyURL: cfg.Recaptcha.VerifyURL,
		Timeout:   cfg.Recaptcha.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create recaptcha client")
	}

	opener, err := newOpener(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Mail.Driver).Msg("failed to create mail relay")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	relay := mailer.New(opener, cfg.Mail.From, cfg.Mail.MaxSessions, logger)
	contactService := service.NewContactService(
		verifier,
		service.NewMailContactDelivery(relay),
		validate,
		service.ContactOptions{DeliveryTimeout: cfg.Mail.Timeout, Sanitize: cfg.Mail.Sanitize},
		logger,
	)
	contactHandler := handler.NewContactHandler(contactService, logger)

	var page []byte
	if !cfg.IsProduction() {
		page, err = handler.LoadStaticPage(cfg.StaticPage)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.StaticPage).Msg("failed to load static page")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ContactHandler: contactHandler,
		StaticPage:     page,
		Relay:          relay,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Str("mail_driver", cfg.Mail.Driver).Msg("server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

func newOpener(ctx context.Context, cfg config.Config, logger zerolog.Logger) (mailer.Opener, error) {
	switch cfg.Mail.Driver {
	case config.MailDriverSMTP:
		return mailer.NewSMTPOpener(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			User:     cfg.Mail.User,
			Password: cfg.Mail.Password,
		})
	case config.MailDriverSES:
		return mailer.NewSESOpener(ctx, mailer.SESConfig{
			Region:    cfg.SES.Region,
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
		}, logger)
	case config.MailDriverLog:
		return mailer.NewLogOpener(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Mail.Driver)
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
