package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("mailer: recipient is required")

// Message is a plain-text email handed to a relay.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Session is a single connection to a relay provider. A session is used for
// exactly one send and closed afterwards.
type Session interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Opener establishes new relay sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Mailer sends messages through short-lived relay sessions, bounding how many
// sessions may be open at once.
type Mailer struct {
	opener   Opener
	from     string
	slots    *semaphore.Weighted
	capacity int
	active   atomic.Int64
	logger   zerolog.Logger
}

// New constructs a Mailer. maxSessions below one is treated as one.
func New(opener Opener, from string, maxSessions int, logger zerolog.Logger) *Mailer {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Mailer{
		opener:   opener,
		from:     strings.TrimSpace(from),
		slots:    semaphore.NewWeighted(int64(maxSessions)),
		capacity: maxSessions,
		logger:   logger.With().Str("component", "mailer").Logger(),
	}
}

// Send delivers msg using a fresh session. The session is released on every
// exit path, panics included, and a close failure after an accepted send is
// only logged.
func (m *Mailer) Send(ctx context.Context, msg Message) (err error) {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if msg.From == "" {
		msg.From = m.from
	}

	if err := m.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("mailer: acquire session slot: %w", err)
	}
	defer m.slots.Release(1)

	session, openErr := m.opener.Open(ctx)
	if openErr != nil {
		return fmt.Errorf("mailer: open session: %w", openErr)
	}

	m.active.Add(1)
	defer m.active.Add(-1)
	defer func() {
		closeErr := session.Close()
		if closeErr == nil {
			return
		}
		if err != nil {
			err = errors.Join(err, fmt.Errorf("mailer: close session: %w", closeErr))
			return
		}
		m.logger.Warn().Err(closeErr).Msg("relay session close failed after accepted send")
	}()

	if sendErr := session.Send(ctx, msg); sendErr != nil {
		return fmt.Errorf("mailer: send: %w", sendErr)
	}
	return nil
}

// ActiveSessions reports how many relay sessions are currently open.
func (m *Mailer) ActiveSessions() int {
	return int(m.active.Load())
}

// MaxSessions reports the configured session bound.
func (m *Mailer) MaxSessions() int {
	return m.capacity
}

// LogOpener produces sessions that only log messages. It backs the log driver
// used in development.
type LogOpener struct {
	logger zerolog.Logger
}

// NewLogOpener constructs a LogOpener.
func NewLogOpener(logger zerolog.Logger) *LogOpener {
	return &LogOpener{logger: logger.With().Str("component", "mailer_log").Logger()}
}

// Open implements Opener.
func (o *LogOpener) Open(context.Context) (Session, error) {
	return logSession{logger: o.logger}, nil
}

type logSession struct {
	logger zerolog.Logger
}

func (s logSession) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("to", MaskAddress(msg.To)).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Text)).
		Msg("message accepted by log relay")
	return nil
}

func (logSession) Close() error { return nil }

// MaskAddress hides most of the local part of an email address for logging.
func MaskAddress(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return "***"
	}
	local := parts[0]
	if len(local) <= 2 {
		local = local[:1] + "***"
	} else {
		local = local[:1] + "***" + local[len(local)-1:]
	}
	return local + "@" + parts[1]
}
