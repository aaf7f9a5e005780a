package email

import (
	"context"
	"log/slog"
)

// Email represents an email message to be sent.
type Email struct {
	To       []string          // Recipient email addresses
	From     string            // Sender email address
	Subject  string            // Email subject
	TextBody string            // Plain text body
	HTMLBody string            // HTML body (optional)
	Headers  map[string]string // Custom headers (optional)
}

// Sender defines the interface for sending emails.
type Sender interface {
	// Send sends an email message.
	// Returns the message ID from the email provider (if available).
	Send(ctx context.Context, email *Email) (string, error)
}

// LogSender writes emails to the log instead of delivering them.
// Used in development when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message and returns a synthetic message ID.
func (s *LogSender) Send(ctx context.Context, email *Email) (string, error) {
	s.logger.InfoContext(ctx, "email: not delivered (log sender)",
		"to", email.To,
		"subject", email.Subject,
		"text", email.TextBody,
	)
	return "log", nil
}
