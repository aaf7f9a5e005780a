package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
)

// UserService implements domain.UserStore using PostgreSQL.
type UserService struct {
	repo repository.Querier
}

// Compile-time check to ensure UserService implements domain.UserStore.
var _ domain.UserStore = (*UserService)(nil)

// NewUserService creates a new UserService instance.
func NewUserService(repo repository.Querier) *UserService {
	return &UserService{repo: repo}
}

// mapRepoUserToDomain converts a repository User to a domain User.
func mapRepoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:         repository.FromUUID(u.ID),
		UID:        u.Uid,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone.String,
		AuthMethod: domain.AuthMethod(u.AuthMethod),
		IsAdmin:    u.IsAdmin,
		CreatedAt:  u.CreatedAt.Time,
	}
}

// GetByUID returns the user with the given identity-provider uid.
func (s *UserService) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	user, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return mapRepoUserToDomain(user), nil
}

// GetByPhone returns the user with the given 10-digit phone.
func (s *UserService) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	user, err := s.repo.GetUserByPhone(ctx, repository.Text(phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return mapRepoUserToDomain(user), nil
}

// FindOrCreate returns the user for identity.UID, creating it on first sight.
func (s *UserService) FindOrCreate(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if identity.UID == "" {
		return nil, errors.New("identity has no uid")
	}
	method := identity.Method
	if method == "" {
		method = domain.AuthMethodFirebase
	}

	user, err := s.repo.UpsertUser(ctx, repository.UpsertUserParams{
		Uid:        identity.UID,
		Name:       identity.Name,
		Email:      identity.Email,
		Phone:      repository.Text(identity.Phone),
		AuthMethod: string(method),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return mapRepoUserToDomain(user), nil
}

// SaveOTP stores an OTP hash for phone, creating a phone user if needed.
func (s *UserService) SaveOTP(ctx context.Context, phone string, hash string) (*domain.User, error) {
	user, err := s.repo.SavePhoneOTP(ctx, repository.SavePhoneOTPParams{
		Uid:     "phone-" + phone,
		Phone:   repository.Text(phone),
		OtpHash: repository.Text(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save otp: %w", err)
	}
	return mapRepoUserToDomain(user), nil
}

// GetOTP returns the stored OTP for phone.
func (s *UserService) GetOTP(ctx context.Context, phone string) (*domain.OTPRecord, error) {
	user, err := s.repo.GetUserByPhone(ctx, repository.Text(phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.OtpHash.Valid || !user.OtpCreatedAt.Valid {
		return nil, domain.ErrOTPNotFound
	}
	return &domain.OTPRecord{
		Hash:      user.OtpHash.String,
		CreatedAt: user.OtpCreatedAt.Time,
	}, nil
}

// ClearOTP removes the stored OTP and marks the phone verified.
func (s *UserService) ClearOTP(ctx context.Context, phone string) error {
	if err := s.repo.ClearPhoneOTP(ctx, repository.Text(phone)); err != nil {
		return fmt.Errorf("failed to clear otp: %w", err)
	}
	return nil
}
