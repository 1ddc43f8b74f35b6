package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripeEnabledBySecretKeyAlone(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "")

	cfg := Load()
	assert.True(t, cfg.Payments.Stripe.Enabled())
	assert.Equal(t, "sk_test_123", cfg.Payments.Stripe.SecretKey)
}

func TestPayPalNeedsBothCredentials(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "client-id")
	t.Setenv("PAYPAL_SECRET", "")

	cfg := Load()
	assert.False(t, cfg.Payments.PayPal.Enabled())

	t.Setenv("PAYPAL_SECRET", "client-secret")
	cfg = Load()
	assert.True(t, cfg.Payments.PayPal.Enabled())
	assert.Equal(t, "integration", cfg.Payments.PayPal.Environment)
}

func TestGatewaysDisabledWithoutCredentials(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("PAYPAL_CLIENT_ID", "")
	t.Setenv("PAYPAL_SECRET", "")

	cfg := Load()
	assert.False(t, cfg.Payments.Stripe.Enabled())
	assert.False(t, cfg.Payments.PayPal.Enabled())
	assert.Equal(t, float64(950), cfg.Payments.CLPUSDRate)
}
