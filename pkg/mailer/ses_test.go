package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/require"
)

type stubSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSendMapsMessage(t *testing.T) {
	api := &stubSES{}
	m := New(NewSESOpenerWithClient(api, testLogger()), "noreply@example.com", 1, testLogger())

	err := m.Send(context.Background(), Message{To: "ana@x.com", Subject: "Ana envió un mensaje", Text: "Hola\n\nAna"})
	require.NoError(t, err)

	require.NotNil(t, api.input)
	require.Equal(t, "noreply@example.com", aws.ToString(api.input.FromEmailAddress))
	require.Equal(t, []string{"ana@x.com"}, api.input.Destination.ToAddresses)
	require.Equal(t, "Ana envió un mensaje", aws.ToString(api.input.Content.Simple.Subject.Data))
	require.Equal(t, "Hola\n\nAna", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	require.Nil(t, api.input.Content.Simple.Body.Html)
}

func TestSESSendFailure(t *testing.T) {
	api := &stubSES{err: errors.New("MessageRejected")}
	m := New(NewSESOpenerWithClient(api, testLogger()), "noreply@example.com", 1, testLogger())

	err := m.Send(context.Background(), Message{To: "ana@x.com"})
	require.ErrorIs(t, err, api.err)
}

func TestSESOpenWithoutClient(t *testing.T) {
	opener := NewSESOpenerWithClient(nil, testLogger())
	_, err := opener.Open(context.Background())
	require.Error(t, err)
}
