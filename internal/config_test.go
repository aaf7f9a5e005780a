package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRazorpayEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PAYMENT_PROVIDER", "razorpay")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "key-secret")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "webhook-secret")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRazorpayEnv(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, uint16(5000), cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.Payment.Razorpay.BaseURL)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.OlderThan)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestNewConfig_Overrides(t *testing.T) {
	setRazorpayEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "https://haat.in, https://admin.haat.in,")
	t.Setenv("RECONCILE_INTERVAL", "2m")
	t.Setenv("RECONCILE_OLDER_THAN", "not-a-duration")
	t.Setenv("LOG_LEVEL", "verbose")
	t.Setenv("ENV", "staging")
	t.Setenv("JWT_SECRET", "prod-secret")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, []string{"https://haat.in", "https://admin.haat.in"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.OlderThan, "unparseable durations fall back")
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "prod", cfg.Env, "unknown environments run as prod")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "prod needs a real jwt secret",
			env:     map[string]string{"ENV": "prod"},
			wantErr: "JWT_SECRET must be set",
		},
		{
			name:    "razorpay keys",
			env:     map[string]string{"RAZORPAY_KEY_SECRET": ""},
			wantErr: "RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET required",
		},
		{
			name:    "razorpay webhook secret",
			env:     map[string]string{"RAZORPAY_WEBHOOK_SECRET": ""},
			wantErr: "RAZORPAY_WEBHOOK_SECRET required",
		},
		{
			name:    "stripe keys",
			env:     map[string]string{"PAYMENT_PROVIDER": "stripe", "STRIPE_SECRET_KEY": "sk_test_1"},
			wantErr: "STRIPE_WEBHOOK_SECRET required",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"PAYMENT_PROVIDER": "paypal"},
			wantErr: `unknown PAYMENT_PROVIDER "paypal"`,
		},
		{
			name:    "expiry shorter than grace period",
			env:     map[string]string{"RECONCILE_OLDER_THAN": "2h", "RECONCILE_EXPIRE_AFTER": "1h"},
			wantErr: "RECONCILE_EXPIRE_AFTER must not be shorter",
		},
		{
			name: "stripe configured",
			env: map[string]string{
				"PAYMENT_PROVIDER":      "stripe",
				"STRIPE_SECRET_KEY":     "sk_test_1",
				"STRIPE_WEBHOOK_SECRET": "whsec_1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRazorpayEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
