package models

import "fmt"

// OutboundMessage is the email derived from a contact submission.
type OutboundMessage struct {
	Recipient string
	Subject   string
	Body      string
}

// NewOutboundMessage composes the relayed email: the subject names the sender
// and the body is the message signed with the sender's name.
func NewOutboundMessage(name, email, message string) OutboundMessage {
	return OutboundMessage{
		Recipient: email,
		Subject:   fmt.Sprintf("%s envió un mensaje", name),
		Body:      fmt.Sprintf("%s\n\n%s", message, name),
	}
}
