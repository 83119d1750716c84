package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// ErrAuthUnsupported is returned when credentials are configured but the relay
// does not offer AUTH.
var ErrAuthUnsupported = errors.New("smtp: server does not support AUTH")

// SMTPConfig holds the relay account used for outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPOption configures the SMTP opener.
type SMTPOption func(*SMTPOpener)

// WithSMTPDialer swaps the network dialer used to reach the relay.
func WithSMTPDialer(d Dialer) SMTPOption {
	return func(o *SMTPOpener) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithSMTPTLSConfig overrides the STARTTLS configuration. A nil config
// disables STARTTLS.
func WithSMTPTLSConfig(cfg *tls.Config) SMTPOption {
	return func(o *SMTPOpener) {
		o.tlsConfig = cfg
	}
}

// WithSMTPClock replaces the clock used for the Date header.
func WithSMTPClock(now func() time.Time) SMTPOption {
	return func(o *SMTPOpener) {
		if now != nil {
			o.now = now
		}
	}
}

// SMTPOpener opens authenticated SMTP sessions.
type SMTPOpener struct {
	host      string
	port      int
	auth      smtp.Auth
	tlsConfig *tls.Config
	dialer    Dialer
	now       func() time.Time
	helloName string
}

// NewSMTPOpener validates cfg and constructs an opener.
func NewSMTPOpener(cfg SMTPConfig, opts ...SMTPOption) (*SMTPOpener, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("smtp: invalid port %d", cfg.Port)
	}

	o := &SMTPOpener{
		host:      host,
		port:      port,
		dialer:    &net.Dialer{Timeout: 30 * time.Second},
		now:       time.Now,
		helloName: "localhost",
		tlsConfig: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
	}
	if strings.TrimSpace(cfg.User) != "" {
		o.auth = smtp.PlainAuth("", cfg.User, cfg.Password, host)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o, nil
}

// Open dials the relay, negotiates STARTTLS and authenticates.
func (o *SMTPOpener) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(o.host, strconv.Itoa(o.port))
	conn, err := o.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, o.host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp: new client: %w", err)
	}

	session := &smtpSession{client: client, now: o.now}

	if err := client.Hello(o.helloName); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("smtp: hello: %w", err)
	}

	if o.tlsConfig != nil {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(o.tlsConfig.Clone()); err != nil {
				_ = session.Close()
				return nil, fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}

	if o.auth != nil {
		if ok, _ := client.Extension("AUTH"); !ok {
			_ = session.Close()
			return nil, ErrAuthUnsupported
		}
		if err := client.Auth(o.auth); err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("smtp: auth: %w", err)
		}
	}

	return session, nil
}

type smtpSession struct {
	client *smtp.Client
	now    func() time.Time
	closed bool
}

func (s *smtpSession) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := envelopeAddress(msg.From)
	if err != nil {
		return fmt.Errorf("smtp: invalid from address: %w", err)
	}
	to, err := envelopeAddress(msg.To)
	if err != nil {
		return fmt.Errorf("smtp: invalid recipient: %w", err)
	}

	body, err := buildMessage(msg, s.now())
	if err != nil {
		return err
	}

	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := s.client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp: rcpt to: %w", err)
	}

	writer, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp: data write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp: data close: %w", err)
	}

	return nil
}

// Close ends the SMTP conversation. It is safe to call more than once.
func (s *smtpSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	// Quit closes the underlying connection on success.
	quitErr := s.client.Quit()
	if quitErr == nil || errors.Is(quitErr, io.EOF) {
		return nil
	}
	_ = s.client.Close()
	return fmt.Errorf("smtp: quit: %w", quitErr)
}

func buildMessage(msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writeHeader := func(key, value string) {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	writeHeader("From", sanitizeHeader(msg.From))
	writeHeader("To", sanitizeHeader(msg.To))
	writeHeader("Subject", mime.QEncoding.Encode("UTF-8", sanitizeHeader(msg.Subject)))
	writeHeader("Date", now.UTC().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/plain; charset=UTF-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(normalizeNewlines(msg.Text))); err != nil {
		return nil, fmt.Errorf("smtp: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("smtp: encode body: %w", err)
	}

	return buf.Bytes(), nil
}

func envelopeAddress(value string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

func normalizeNewlines(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

func sanitizeHeader(value string) string {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}
