package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mail relay drivers.
const (
	MailDriverSMTP = "smtp"
	MailDriverSES  = "ses"
	MailDriverLog  = "log"
)

const productionEnv = "production"

// Config holds runtime configuration values for the contact mailer service.
type Config struct {
	AppName    string `validate:"required"`
	AppEnv     string `validate:"required"`
	AppPort    string `validate:"required"`
	LogLevel   string `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	LogPretty  bool
	StaticPage string
	Recaptcha  RecaptchaConfig
	Mail       MailConfig
	SES        SESConfig
}

// RecaptchaConfig describes how submissions are verified.
type RecaptchaConfig struct {
	Secret    string        `validate:"required"`
	VerifyURL string        `validate:"required,url"`
	Timeout   time.Duration `validate:"gt=0"`
}

// MailConfig describes the outbound relay.
type MailConfig struct {
	Driver      string        `validate:"required,oneof=smtp ses log"`
	User        string        `validate:"required_if=Driver smtp"`
	Password    string        `validate:"required_if=Driver smtp"`
	From        string        `validate:"required_if=Driver ses"`
	Host        string        `validate:"required_if=Driver smtp"`
	Port        int           `validate:"min=0,max=65535"`
	Timeout     time.Duration `validate:"gt=0"`
	MaxSessions int           `validate:"min=1"`
	Sanitize    bool
}

// SESConfig carries AWS SES credentials for the ses driver.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), productionEnv)
}

// Load reads configuration values from environment variables and, outside
// production, an optional .env file.
func Load() (Config, error) {
	if !strings.EqualFold(os.Getenv("NODE_ENV"), productionEnv) && !strings.EqualFold(os.Getenv("CONTACT_APP_ENV"), productionEnv) {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix("CONTACT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	legacy := map[string][]string{
		"app.env":          {"CONTACT_APP_ENV", "NODE_ENV"},
		"app.port":         {"CONTACT_APP_PORT", "PORT"},
		"recaptcha.secret": {"CONTACT_RECAPTCHA_SECRET", "RECAPTCHA_SECRET"},
		"mail.user":        {"CONTACT_MAIL_USER", "GMAIL_USER"},
		"mail.password":    {"CONTACT_MAIL_PASSWORD", "GMAIL_PASSWORD"},
	}
	for key, envs := range legacy {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("app.name", "Contact Mailer API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("static.page", "web/index.html")
	v.SetDefault("recaptcha.verify_url", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("recaptcha.timeout", "10s")
	v.SetDefault("mail.driver", MailDriverSMTP)
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timeout", "30s")
	v.SetDefault("mail.max_sessions", 4)
	v.SetDefault("mail.sanitize", false)
	v.SetDefault("ses.region", "us-east-1")

	recaptchaTimeout, err := parseDuration(v, "recaptcha.timeout", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	mailTimeout, err := parseDuration(v, "mail.timeout", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:    v.GetString("app.name"),
		AppEnv:     strings.ToLower(v.GetString("app.env")),
		AppPort:    v.GetString("app.port"),
		LogLevel:   strings.ToLower(v.GetString("log.level")),
		LogPretty:  v.GetBool("log.pretty"),
		StaticPage: v.GetString("static.page"),
		Recaptcha: RecaptchaConfig{
			Secret:    v.GetString("recaptcha.secret"),
			VerifyURL: v.GetString("recaptcha.verify_url"),
			Timeout:   recaptchaTimeout,
		},
		Mail: MailConfig{
			Driver:      strings.ToLower(v.GetString("mail.driver")),
			User:        v.GetString("mail.user"),
			Password:    v.GetString("mail.password"),
			From:        v.GetString("mail.from"),
			Host:        v.GetString("mail.host"),
			Port:        v.GetInt("mail.port"),
			Timeout:     mailTimeout,
			MaxSessions: v.GetInt("mail.max_sessions"),
			Sanitize:    v.GetBool("mail.sanitize"),
		},
		SES: SESConfig{
			Region:    v.GetString("ses.region"),
			AccessKey: v.GetString("ses.access_key"),
			SecretKey: v.GetString("ses.secret_key"),
		},
	}

	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.User
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for missing or inconsistent values.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return value, nil
}
