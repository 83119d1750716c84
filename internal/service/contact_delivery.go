package service

import (
	"context"

	"github.com/noah-isme/contact-mailer-api/internal/models"
	"github.com/noah-isme/contact-mailer-api/pkg/mailer"
)

// MessageSender is the relay capability used for delivery.
type MessageSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// MailContactDelivery hands contact messages to the mail relay.
type MailContactDelivery struct {
	sender MessageSender
}

// NewMailContactDelivery constructs a relay-backed delivery.
func NewMailContactDelivery(sender MessageSender) *MailContactDelivery {
	return &MailContactDelivery{sender: sender}
}

// Deliver sends one message; the relay's From address is applied by the sender.
func (d *MailContactDelivery) Deliver(ctx context.Context, message models.OutboundMessage) error {
	return d.sender.Send(ctx, mailer.Message{
		To:      message.Recipient,
		Subject: message.Subject,
		Text:    message.Body,
	})
}
