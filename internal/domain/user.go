package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthMethod records how a user first authenticated.
type AuthMethod string

const (
	AuthMethodFirebase AuthMethod = "firebase"
	AuthMethodPhone    AuthMethod = "phone"
	AuthMethodEmail    AuthMethod = "email"
	AuthMethodGoogle   AuthMethod = "google"
)

// User is an authenticated customer or administrator.
type User struct {
	ID         uuid.UUID  `json:"id"`
	UID        string     `json:"uid"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	AuthMethod AuthMethod `json:"authMethod"`
	IsAdmin    bool       `json:"isAdmin"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Identity is what a token verifier learns about the bearer.
type Identity struct {
	// UID is the subject identifier issued by the identity provider.
	UID   string
	Email string
	Phone string
	Name  string

	// Method is the verifier that produced the identity.
	Method AuthMethod
}

// OTPRecord is the hashed one-time password stored for phone login.
type OTPRecord struct {
	Hash      string
	CreatedAt time.Time
}

var (
	ErrUserNotFound = &Error{Code: ENOTFOUND, Message: "User not found"}
	ErrOTPNotFound  = &Error{Code: EINVALID, Message: "OTP not found or expired"}
)

// UserStore persists users and their one-time passwords.
type UserStore interface {
	// GetByUID returns ErrUserNotFound when no user has the uid.
	GetByUID(ctx context.Context, uid string) (*User, error)

	// GetByPhone returns ErrUserNotFound when no user has the phone.
	GetByPhone(ctx context.Context, phone string) (*User, error)

	// FindOrCreate returns the user for identity.UID, creating it on first sight.
	FindOrCreate(ctx context.Context, identity Identity) (*User, error)

	// SaveOTP stores an OTP hash for phone, creating a phone user if needed.
	SaveOTP(ctx context.Context, phone string, hash string) (*User, error)

	// GetOTP returns the stored OTP for phone, or ErrOTPNotFound.
	GetOTP(ctx context.Context, phone string) (*OTPRecord, error)

	// ClearOTP removes the stored OTP and marks the phone verified.
	ClearOTP(ctx context.Context, phone string) error
}
