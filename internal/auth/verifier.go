// Package auth verifies bearer tokens and handles phone OTP login.
//
// A Chain tries each Verifier in order. The Firebase verifier accepts ID
// tokens from the identity provider; the token service accepts the HS256
// tokens this server issues after an OTP login.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dukerupert/haat/internal/domain"
)

// Token errors surfaced to clients.
var (
	ErrNoToken      = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Unauthorized: No token provided"}
	ErrTokenExpired = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Unauthorized: Token expired"}
	ErrInvalidToken = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Unauthorized: Invalid token"}
)

// Verifier resolves a bearer token to a user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*domain.User, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (*domain.User, error) {
	return f(ctx, token)
}

// Chain tries verifiers in order. The first success wins; when every
// verifier fails the last error is returned.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	err := error(ErrInvalidToken)
	for _, v := range c {
		user, verr := v.Verify(ctx, token)
		if verr == nil {
			return user, nil
		}
		err = verr
	}
	return nil, err
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is missing or not a bearer credential.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// tokenError wraps a verification failure in the client-facing error.
// Store failures are passed through so they surface as internal errors.
func tokenError(op string, expired bool, cause error) error {
	var de *domain.Error
	if errors.As(cause, &de) && de.Code == domain.EINTERNAL {
		return cause
	}
	base := ErrInvalidToken
	if expired {
		base = ErrTokenExpired
	}
	return &domain.Error{Code: base.Code, Message: base.Message, Op: op, Err: cause}
}
