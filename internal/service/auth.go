package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/haat/internal/auth"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/telemetry"
)

// AuthService handles phone OTP login and token introspection.
type AuthService interface {
	// SendOTP generates a code for phone, stores its hash and sends it by SMS.
	SendOTP(ctx context.Context, phone string) (*OTPChallenge, error)

	// VerifyOTP checks a code and issues a token on success.
	VerifyOTP(ctx context.Context, phone, otp string) (*LoginResult, error)

	// VerifyToken resolves a bearer token to its user.
	VerifyToken(ctx context.Context, token string) (*domain.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// OTPChallenge is returned after a code is sent. DevOTP is only set when
// codes are echoed for local development.
type OTPChallenge struct {
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expiresIn"`
	DevOTP    string `json:"otp,omitempty"`
}

// LoginResult is a successful OTP login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// AuthConfig holds AuthService options.
type AuthConfig struct {
	// EchoOTP returns the generated code in the response. Never enable in prod.
	EchoOTP bool
}

type authService struct {
	users    domain.UserStore
	sms      auth.SMSSender
	tokens   TokenIssuer
	verifier auth.Verifier
	config   AuthConfig
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(
	users domain.UserStore,
	sms auth.SMSSender,
	tokens TokenIssuer,
	verifier auth.Verifier,
	config AuthConfig,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:    users,
		sms:      sms,
		tokens:   tokens,
		verifier: verifier,
		config:   config,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) normalizePhone(op, phone string) (string, error) {
	if phone == "" {
		return "", domain.NewValidationError(op, "Phone number required")
	}
	clean, err := auth.NormalizePhone(phone)
	if err != nil {
		return "", domain.NewValidationError(op, "Invalid phone number")
	}
	if err := validatePhone(op, clean); err != nil {
		return "", err
	}
	return clean, nil
}

func (s *authService) SendOTP(ctx context.Context, phone string) (*OTPChallenge, error) {
	const op = "auth.send_otp"

	clean, err := s.normalizePhone(op, phone)
	if err != nil {
		return nil, err
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to send SMS. Please try again.")
	}
	hash, err := auth.HashOTP(otp)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to send SMS. Please try again.")
	}
	if _, err := s.users.SaveOTP(ctx, clean, hash); err != nil {
		return nil, domain.Internal(err, op, "Failed to send SMS. Please try again.")
	}

	challenge := &OTPChallenge{
		Phone:     clean,
		ExpiresIn: int(auth.OTPTTL / time.Second),
	}
	if s.config.EchoOTP {
		challenge.DevOTP = otp
	}

	if err := s.sms.SendOTP(ctx, clean, otp); err != nil {
		s.logger.Error("failed to send otp", "phone", clean, "error", err)
		if !s.config.EchoOTP {
			return nil, domain.Internal(err, op, "Failed to send SMS. Please try again.")
		}
		return challenge, nil
	}

	s.metrics.RecordOTPSent()
	s.logger.Info("otp sent", "phone", clean)
	return challenge, nil
}

func (s *authService) VerifyOTP(ctx context.Context, phone, otp string) (*LoginResult, error) {
	const op = "auth.verify_otp"

	if phone == "" || otp == "" {
		return nil, domain.NewValidationError(op, "Phone and OTP required")
	}
	clean, err := s.normalizePhone(op, phone)
	if err != nil {
		return nil, err
	}

	record, err := s.users.GetOTP(ctx, clean)
	if err != nil {
		if errors.Is(err, domain.ErrOTPNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.RecordLogin(string(domain.AuthMethodPhone), "otp_missing")
			return nil, domain.Invalid(op, "OTP expired or invalid")
		}
		return nil, domain.Internal(err, op, "Server error during OTP verification")
	}

	if auth.OTPExpired(record.CreatedAt, s.now()) {
		if err := s.users.ClearOTP(ctx, clean); err != nil {
			s.logger.Warn("failed to clear expired otp", "phone", clean, "error", err)
		}
		s.metrics.RecordLogin(string(domain.AuthMethodPhone), "otp_expired")
		return nil, domain.Invalid(op, "OTP expired")
	}

	if err := auth.VerifyOTP(otp, record.Hash); err != nil {
		if errors.Is(err, auth.ErrOTPMismatch) {
			s.metrics.RecordLogin(string(domain.AuthMethodPhone), "invalid_otp")
			return nil, domain.Invalid(op, "Invalid OTP")
		}
		return nil, domain.Internal(err, op, "Server error during OTP verification")
	}

	if err := s.users.ClearOTP(ctx, clean); err != nil {
		return nil, domain.Internal(err, op, "Server error during OTP verification")
	}

	user, err := s.users.GetByPhone(ctx, clean)
	if err != nil {
		return nil, domain.Internal(err, op, "Server error during OTP verification")
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.Internal(err, op, "Server error during OTP verification")
	}

	s.metrics.RecordLogin(string(domain.AuthMethodPhone), "")
	s.logger.Info("otp verified", "phone", clean, "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.NewValidationError("auth.verify_token", "Token required")
	}
	return s.verifier.Verify(ctx, token)
}
