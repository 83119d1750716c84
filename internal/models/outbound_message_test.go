package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOutboundMessage(t *testing.T) {
	msg := NewOutboundMessage("Ana", "ana@x.com", "Hola")

	require.Equal(t, "ana@x.com", msg.Recipient)
	require.Equal(t, "Ana envió un mensaje", msg.Subject)
	require.Equal(t, "Hola\n\nAna", msg.Body)
}

func TestNewOutboundMessageKeepsEmptyFields(t *testing.T) {
	msg := NewOutboundMessage("", "", "")

	require.Equal(t, "", msg.Recipient)
	require.Equal(t, " envió un mensaje", msg.Subject)
	require.Equal(t, "\n\n", msg.Body)
}
