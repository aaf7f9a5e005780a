package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/haat/internal/domain"
)

// DefaultTokenTTL is the lifetime of tokens issued after OTP login.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenClaims are the claims of a server-issued token.
type TokenClaims struct {
	UID        string `json:"uid"`
	Phone      string `json:"phone,omitempty"`
	AuthMethod string `json:"authMethod"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens signed with the server
// secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	users  domain.UserStore
	now    func() time.Time
}

var _ Verifier = (*TokenService)(nil)

// NewTokenService creates a TokenService. A zero ttl uses DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration, users domain.UserStore) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}, nil
}

// Issue signs a token for user. It returns the token and its expiry.
func (s *TokenService) Issue(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := TokenClaims{
		UID:        user.UID,
		Phone:      user.Phone,
		AuthMethod: string(domain.AuthMethodPhone),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates the signature and expiry of a token and returns its claims.
func (s *TokenService) Parse(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.UID == "" && claims.Phone == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Verify resolves the token's user by phone, then by uid. A valid token
// for a user that no longer exists recreates the phone user.
func (s *TokenService) Verify(ctx context.Context, token string) (*domain.User, error) {
	const op = "auth.token"

	claims, err := s.Parse(token)
	if err != nil {
		return nil, tokenError(op, errors.Is(err, jwt.ErrTokenExpired), err)
	}

	if claims.Phone != "" {
		user, err := s.users.GetByPhone(ctx, claims.Phone)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}
	if claims.UID != "" {
		user, err := s.users.GetByUID(ctx, claims.UID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}
	if claims.Phone == "" {
		return nil, tokenError(op, false, domain.ErrUserNotFound)
	}

	uid := claims.UID
	if uid == "" {
		uid = "phone-" + claims.Phone
	}
	return s.users.FindOrCreate(ctx, domain.Identity{
		UID:    uid,
		Phone:  claims.Phone,
		Name:   "User",
		Method: domain.AuthMethodPhone,
	})
}
