package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

// SMTPConfig holds SMTP connection parameters. Username and Password may be
// empty for relays that accept unauthenticated mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender delivers mail through an SMTP relay. TLS follows the port:
// implicit on 465, mandatory STARTTLS on 587, opportunistic elsewhere so
// local catchers like Mailpit work.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{config: config, logger: logger.With("sender", "smtp")}
}

// Send dials the relay, delivers email and returns the generated
// Message-ID.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (string, error) {
	msg, err := s.message(email)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(s.config.Host, s.options()...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send to %s:%d: %w", s.config.Host, s.config.Port, err)
	}

	id := msg.GetMessageID()
	s.logger.InfoContext(ctx, "email delivered", "to", email.To, "subject", email.Subject, "message_id", id)
	return id, nil
}

func (s *SMTPSender) message(email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()

	from := email.From
	if from == "" {
		from = s.config.From
	}
	var err error
	if s.config.FromName != "" && email.From == "" {
		err = msg.FromFormat(s.config.FromName, from)
	} else {
		err = msg.From(from)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFromAddress, err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToAddress, err)
	}

	msg.Subject(email.Subject)
	msg.SetMessageID()
	msg.SetDate()
	for k, v := range email.Headers {
		msg.SetGenHeader(mail.Header(k), v)
	}

	switch {
	case email.HTMLBody != "" && email.TextBody != "":
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
	case email.HTMLBody != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
	}
	return msg, nil
}

func (s *SMTPSender) options() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.config.Port), mail.WithTimeout(smtpTimeout)}
	switch s.config.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}
	return opts
}
