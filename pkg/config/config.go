package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Payments PaymentsConfig
	Email    EmailConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port      string
	ReturnURL string
	CancelURL string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

// Gateways with missing credentials are unavailable and never registered.
type StripeConfig struct {
	SecretKey      string
	PublishableKey string // handed to the frontend, not used server-side
}

func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

type PayPalConfig struct {
	ClientID    string
	Secret      string
	Environment string // integration | production
}

func (p PayPalConfig) Enabled() bool {
	return p.ClientID != "" && p.Secret != ""
}

type PaymentsConfig struct {
	Stripe StripeConfig
	PayPal PayPalConfig
	// CLPUSDRate is how many CLP one USD buys; used by the wallet gateway.
	CLPUSDRate float64
}

type EmailConfig struct {
	ResendAPIKey string
}

type StorageConfig struct {
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "3000"),
			ReturnURL: getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/api/subscriptions/payment-return"),
			CancelURL: getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/api/subscriptions/payment-cancelled"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "armind-dev-secret"),
		},
		Payments: PaymentsConfig{
			Stripe: StripeConfig{
				SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
				PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			},
			PayPal: PayPalConfig{
				ClientID:    getEnv("PAYPAL_CLIENT_ID", ""),
				Secret:      getEnv("PAYPAL_SECRET", ""),
				Environment: getEnv("PAYPAL_ENVIRONMENT", "integration"),
			},
			CLPUSDRate: getEnvFloat("CLP_USD_RATE", 950),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		Storage: StorageConfig{
			AccountID: getEnv("R2_ACCOUNT_ID", ""),
			AccessKey: getEnv("R2_ACCESS_KEY", ""),
			SecretKey: getEnv("R2_SECRET_KEY", ""),
			Bucket:    getEnv("R2_BUCKET", "armind-resumes"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
