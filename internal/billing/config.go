package billing

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// RazorpayConfig contains configuration for the Razorpay provider.
type RazorpayConfig struct {
	// KeyID is the public key id (rzp_test_... or rzp_live_...).
	KeyID string

	// KeySecret signs checkout signatures and authenticates API calls.
	KeySecret string

	// WebhookSecret is the separate secret webhook bodies are signed with.
	WebhookSecret string

	// BaseURL of the REST API. Default: https://api.razorpay.com/v1
	BaseURL string

	// Timeout for each API call. Default: 15s
	Timeout time.Duration

	// Transport for API calls. Default: http.DefaultTransport
	Transport http.RoundTripper
}

// Validate checks that required configuration is present.
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" || c.KeySecret == "" {
		return errors.New("razorpay: key id and key secret are required")
	}
	if c.WebhookSecret == "" {
		return errors.New("razorpay: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode keys.
func (c *RazorpayConfig) IsTestMode() bool {
	return strings.HasPrefix(c.KeyID, "rzp_test_")
}

// StripeConfig contains configuration for the Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_... or sk_live_...)
	APIKey string

	// PublishableKey is handed to the checkout client (pk_...).
	PublishableKey string

	// WebhookSecret is the webhook signing secret (whsec_...)
	WebhookSecret string
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("stripe: API key is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("stripe: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_")
}
