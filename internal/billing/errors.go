package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when gateway credentials are missing or rejected.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrPaymentNotFound is returned when the gateway does not know a payment id.
	ErrPaymentNotFound = errors.New("billing: payment not found")

	// ErrOrderNotFound is returned when the gateway does not know an order id.
	ErrOrderNotFound = errors.New("billing: order not found")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrInvalidPaymentSignature is returned when a checkout signature does not match.
	ErrInvalidPaymentSignature = errors.New("billing: invalid payment signature")

	// ErrAmountTooSmall is returned when an amount is below the gateway minimum.
	ErrAmountTooSmall = errors.New("billing: amount too small (minimum 100 paise)")

	// ErrMalformedWebhook is returned when an authenticated webhook body cannot be decoded.
	ErrMalformedWebhook = errors.New("billing: malformed webhook payload")
)

// MinimumAmountPaise is the smallest chargeable amount (INR 1.00).
const MinimumAmountPaise = 100

// GatewayError wraps an error response from a payment gateway.
type GatewayError struct {
	Provider   string // "razorpay" or "stripe"
	Message    string // Human-readable error message
	Code       string // Gateway error code (e.g., "BAD_REQUEST_ERROR", "card_declined")
	StatusCode int    // HTTP status code from the gateway
	RequestID  string // Gateway request ID for debugging
	Err        error  // Original error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsTemporary returns true if the error is likely transient and retryable.
func (e *GatewayError) IsTemporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500 ||
		e.Code == "rate_limit" || e.Code == "api_connection_error"
}

// IsTemporary reports whether err is a transient gateway failure.
func IsTemporary(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.IsTemporary()
	}
	return false
}
