package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// OTPLength is the number of digits in a login code.
	OTPLength = 6

	// OTPTTL is how long a sent code stays valid.
	OTPTTL = 5 * time.Minute

	// otpCost is the bcrypt cost for OTP hashes. Codes live for minutes,
	// so the cost is lower than a password would get.
	otpCost = 10
)

var (
	ErrOTPMismatch  = errors.New("otp does not match")
	ErrInvalidPhone = errors.New("invalid phone number")
)

// GenerateOTP returns a random numeric code of OTPLength digits.
// The first digit is never zero.
func GenerateOTP() (string, error) {
	// 100000..999999
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// HashOTP generates a bcrypt hash of the code.
func HashOTP(otp string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), otpCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return string(hash), nil
}

// VerifyOTP checks a code against its hash.
func VerifyOTP(otp, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(otp))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrOTPMismatch
		}
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	return nil
}

// OTPExpired reports whether a code created at createdAt is past OTPTTL.
func OTPExpired(createdAt, now time.Time) bool {
	return now.Sub(createdAt) > OTPTTL
}

// NormalizePhone strips a +91 prefix and every non-digit. The result must
// be 10 digits.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+91")

	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if len(clean) != 10 {
		return "", ErrInvalidPhone
	}
	return clean, nil
}
