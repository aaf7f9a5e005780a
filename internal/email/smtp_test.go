package email

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Message(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, From: "orders@haat.example", FromName: "Haat"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	msg, err := s.message(&Email{
		To:       []string{"asha@example.com"},
		Subject:  "Order Confirmation",
		TextBody: "Thanks",
		HTMLBody: "<p>Thanks</p>",
		Headers:  map[string]string{"X-Order-ID": "abc"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.GetMessageID())

	_, err = s.message(&Email{To: []string{"not an address"}, TextBody: "x"})
	assert.ErrorIs(t, err, ErrInvalidToAddress)

	_, err = s.message(&Email{From: "also not", To: []string{"asha@example.com"}, TextBody: "x"})
	assert.ErrorIs(t, err, ErrInvalidFromAddress)
}

func TestSMTPSender_Options(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	anon := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25}, logger)
	authed := NewSMTPSender(SMTPConfig{Host: "smtp.example", Port: 587, Username: "u", Password: "p"}, logger)

	assert.Len(t, anon.options(), 3)
	assert.Len(t, authed.options(), 6)
}
