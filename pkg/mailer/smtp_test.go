package mailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (d dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d(ctx, network, address)
}

type smtpTranscript struct {
	mu       sync.Mutex
	address  string
	mailFrom string
	rcpts    []string
	data     string
	quit     bool
}

func startFakeSMTPServer(t *testing.T, rejectRcpt bool) (net.Conn, *smtpTranscript, func()) {
	t.Helper()

	server, client := net.Pipe()
	transcript := &smtpTranscript{}
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer server.Close()
		if err := runFakeSMTPConversation(server, transcript, rejectRcpt); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("fake smtp server: %v", err)
		}
	}()

	return client, transcript, wg.Wait
}

func runFakeSMTPConversation(conn net.Conn, transcript *smtpTranscript, rejectRcpt bool) error {
	writer := bufio.NewWriter(conn)
	reader := bufio.NewReader(conn)

	writeLine := func(format string, args ...interface{}) error {
		if _, err := fmt.Fprintf(writer, format+"\r\n", args...); err != nil {
			return err
		}
		return writer.Flush()
	}

	if err := writeLine("220 fake smtp ready"); err != nil {
		return err
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		transcript.mu.Lock()
		switch {
		case strings.HasPrefix(upper, "EHLO ") || strings.HasPrefix(upper, "HELO "):
			transcript.mu.Unlock()
			if err := writeLine("250-fake"); err != nil {
				return err
			}
			if err := writeLine("250 OK"); err != nil {
				return err
			}
			continue
		case strings.HasPrefix(upper, "MAIL FROM:"):
			transcript.mailFrom = extractSMTPAddress(line)
		case strings.HasPrefix(upper, "RCPT TO:"):
			transcript.rcpts = append(transcript.rcpts, extractSMTPAddress(line))
			if rejectRcpt {
				transcript.mu.Unlock()
				if err := writeLine("550 mailbox unavailable"); err != nil {
					return err
				}
				continue
			}
		case upper == "DATA":
			transcript.mu.Unlock()
			if err := writeLine("354 Start mail input; end with <CRLF>.<CRLF>"); err != nil {
				return err
			}
			var data strings.Builder
			for {
				msgLine, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				if msgLine == ".\r\n" {
					break
				}
				data.WriteString(msgLine)
			}
			transcript.mu.Lock()
			transcript.data = data.String()
		case upper == "QUIT":
			transcript.quit = true
			transcript.mu.Unlock()
			return writeLine("221 Bye")
		}
		transcript.mu.Unlock()

		if err := writeLine("250 OK"); err != nil {
			return err
		}
	}
}

func extractSMTPAddress(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start != -1 && end != -1 && end > start+1 {
		return strings.TrimSpace(line[start+1 : end])
	}
	return ""
}

func fakeOpener(t *testing.T, rejectRcpt bool) (*SMTPOpener, func() *smtpTranscript) {
	t.Helper()

	var (
		transcript *smtpTranscript
		wait       func()
	)
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, tr, w := startFakeSMTPServer(t, rejectRcpt)
		tr.address = address
		transcript = tr
		wait = w
		return conn, nil
	})

	fixed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	opener, err := NewSMTPOpener(SMTPConfig{Host: "smtp.example.com", Port: 2525},
		WithSMTPDialer(dialer),
		WithSMTPTLSConfig(nil),
		WithSMTPClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)

	return opener, func() *smtpTranscript {
		if wait != nil {
			wait()
		}
		return transcript
	}
}

func TestSMTPSendWritesMessage(t *testing.T) {
	opener, finish := fakeOpener(t, false)
	m := New(opener, "inbox@example.com", 1, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := m.Send(ctx, Message{To: "ana@x.com", Subject: "Ana envió un mensaje", Text: "Hola\n\nAna"})
	require.NoError(t, err)

	transcript := finish()
	require.NotNil(t, transcript)
	require.Equal(t, "smtp.example.com:2525", transcript.address)
	require.Equal(t, "inbox@example.com", transcript.mailFrom)
	require.Equal(t, []string{"ana@x.com"}, transcript.rcpts)
	require.True(t, transcript.quit)

	require.Contains(t, transcript.data, "From: inbox@example.com\r\n")
	require.Contains(t, transcript.data, "To: ana@x.com\r\n")
	require.Contains(t, transcript.data, "Content-Type: text/plain; charset=UTF-8\r\n")
	require.Contains(t, transcript.data, "Date: Wed, 14 Oct 2026 12:00:00 +0000\r\n")
	require.Contains(t, transcript.data, "\r\n\r\nHola\r\n\r\nAna")

	var subject string
	for _, line := range strings.Split(transcript.data, "\r\n") {
		if strings.HasPrefix(line, "Subject: ") {
			subject = strings.TrimPrefix(line, "Subject: ")
		}
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	require.Equal(t, "Ana envió un mensaje", decoded)
}

func TestSMTPSendRejectedRecipientClosesSession(t *testing.T) {
	opener, finish := fakeOpener(t, true)
	m := New(opener, "inbox@example.com", 1, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := m.Send(ctx, Message{To: "ana@x.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rcpt to")

	transcript := finish()
	require.True(t, transcript.quit)
	require.Empty(t, transcript.data)
}

func TestSMTPSendInvalidRecipient(t *testing.T) {
	opener, finish := fakeOpener(t, false)
	m := New(opener, "inbox@example.com", 1, testLogger())

	err := m.Send(context.Background(), Message{To: "not an address", Text: "t"})
	require.Error(t, err)

	transcript := finish()
	require.True(t, transcript.quit)
	require.Empty(t, transcript.mailFrom)
}

func TestSMTPCredentialsRequireAuthExtension(t *testing.T) {
	var finish func()
	var transcript *smtpTranscript
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, tr, wait := startFakeSMTPServer(t, false)
		transcript, finish = tr, wait
		return conn, nil
	})

	opener, err := NewSMTPOpener(SMTPConfig{Host: "smtp.example.com", Port: 2525, User: "relay@example.com", Password: "secret"},
		WithSMTPDialer(dialer),
		WithSMTPTLSConfig(nil),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = opener.Open(ctx)
	require.ErrorIs(t, err, ErrAuthUnsupported)

	finish()
	require.True(t, transcript.quit)
	require.Empty(t, transcript.mailFrom)
}

func TestSMTPDialFailure(t *testing.T) {
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})
	opener, err := NewSMTPOpener(SMTPConfig{Host: "smtp.example.com"}, WithSMTPDialer(dialer))
	require.NoError(t, err)

	_, err = opener.Open(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "dial")
}

func TestNewSMTPOpenerValidation(t *testing.T) {
	_, err := NewSMTPOpener(SMTPConfig{})
	require.Error(t, err)

	_, err = NewSMTPOpener(SMTPConfig{Host: "smtp.example.com", Port: 70000})
	require.Error(t, err)

	opener, err := NewSMTPOpener(SMTPConfig{Host: "smtp.example.com"})
	require.NoError(t, err)
	require.Equal(t, 587, opener.port)
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	raw, err := buildMessage(Message{From: "a@x.com", To: "b@x.com", Subject: "hi\r\nBcc: evil@x.com", Text: "t"}, time.Now())
	require.NoError(t, err)
	require.NotContains(t, string(raw), "\r\nBcc:")
}
