package email

import "github.com/dukerupert/haat/internal/domain"

// Delivery errors. They carry domain codes so a failed job records a
// readable reason and the worker logs can tell bad input from transport
// trouble.
var (
	ErrNoRecipient        = &domain.Error{Code: domain.EINVALID, Message: "Email has no recipient"}
	ErrInvalidFromAddress = &domain.Error{Code: domain.EINVALID, Message: "Invalid from email address"}
	ErrInvalidToAddress   = &domain.Error{Code: domain.EINVALID, Message: "Invalid to email address"}
)

// ErrTemplateNotFound reports a missing email template.
func ErrTemplateNotFound(name string) error {
	return domain.Errorf(domain.ENOTFOUND, "email.render", "Email template %s not found", name)
}
