package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// SESConfig holds the AWS account used by the SES relay.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

// SESAPI is the subset of the SES v2 client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESOpener hands out sessions backed by a shared SES v2 client. The SDK client
// is safe for concurrent use, so a session only scopes one send.
type SESOpener struct {
	client SESAPI
	logger zerolog.Logger
}

// NewSESOpener loads AWS configuration and constructs an SES client. Static
// credentials are used when provided, otherwise the default chain applies.
func NewSESOpener(ctx context.Context, cfg SESConfig, logger zerolog.Logger) (*SESOpener, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	return NewSESOpenerWithClient(sesv2.NewFromConfig(awsCfg), logger), nil
}

// NewSESOpenerWithClient wraps an existing SES client.
func NewSESOpenerWithClient(client SESAPI, logger zerolog.Logger) *SESOpener {
	return &SESOpener{
		client: client,
		logger: logger.With().Str("component", "mailer_ses").Logger(),
	}
}

// Open implements Opener.
func (o *SESOpener) Open(ctx context.Context) (Session, error) {
	if o.client == nil {
		return nil, errors.New("ses: client not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &sesSession{client: o.client, logger: o.logger}, nil
}

type sesSession struct {
	client SESAPI
	logger zerolog.Logger
}

func (s *sesSession) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(sanitizeHeader(msg.Subject)), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses: send email: %w", err)
	}

	if out != nil && out.MessageId != nil {
		s.logger.Debug().Str("message_id", *out.MessageId).Str("to", MaskAddress(msg.To)).Msg("message accepted by ses")
	}
	return nil
}

func (s *sesSession) Close() error { return nil }
