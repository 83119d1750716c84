package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultVerifyURL is Google's siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// maxResponseBytes caps how much of the siteverify body is read.
const maxResponseBytes = 64 << 10

// ErrUnavailable reports that the verification service could not produce a verdict.
var ErrUnavailable = errors.New("recaptcha verification unavailable")

// Config contains the credentials and endpoint used to verify tokens.
type Config struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// Result is the decoded siteverify response.
type Result struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// Client verifies challenge tokens against the reCAPTCHA service.
type Client struct {
	secret    string
	verifyURL string
	http      *http.Client
	logger    zerolog.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client used for verification calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New constructs a verification client.
func New(cfg Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("recaptcha secret must be provided")
	}

	verifyURL := strings.TrimSpace(cfg.VerifyURL)
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if _, err := url.ParseRequestURI(verifyURL); err != nil {
		return nil, fmt.Errorf("invalid recaptcha verify url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		secret:    cfg.Secret,
		verifyURL: verifyURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With().Str("component", "recaptcha").Logger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Verify asks the service whether token was produced by a human. A rejected
// token yields Result.Success == false with a nil error; any failure to obtain
// a verdict is returned wrapped in ErrUnavailable.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	endpoint, err := url.Parse(c.verifyURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	query := endpoint.Query()
	query.Set("secret", c.secret)
	query.Set("response", token)
	if remoteIP != "" {
		query.Set("remoteip", remoteIP)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return Result{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	if !result.Success {
		c.logger.Debug().Strs("error_codes", result.ErrorCodes).Msg("recaptcha token rejected")
	}

	return result, nil
}
