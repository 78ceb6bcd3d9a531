package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/yourusername/vendora/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ClientSignaturePolicy values. "acknowledge" only requires a non-empty name;
// "identity" requires an exact (case-insensitive) match against the client's
// on-file name and gates the awaiting_client_signature -> sent transition.
const (
	ClientPolicyAcknowledge = "acknowledge"
	ClientPolicyIdentity    = "identity"
)

type Config struct {
	Port                  string
	DatabaseURL           string
	JWTSecret             string
	JWTRefreshSecret      string
	StripeSecretKey       string
	StripeWebhookSecret   string
	SendGridAPIKey        string
	BillingEmail          string
	BillingName           string
	AppBaseURL            string
	VATRate               float64
	ClientSignaturePolicy string
	LogLevel              string
	LogFormat             string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	vatRate, err := strconv.ParseFloat(getEnvOrDefault("VAT_RATE", "19"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VAT_RATE: %w", err)
	}

	return &Config{
		Port:                  os.Getenv("PORT"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:      os.Getenv("JWT_REFRESH_SECRET"),
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SendGridAPIKey:        os.Getenv("SENDGRID_API_KEY"),
		BillingEmail:          getEnvOrDefault("BILLING_EMAIL", "billing@vendora.app"),
		BillingName:           getEnvOrDefault("BILLING_NAME", "Vendora Billing"),
		AppBaseURL:            getEnvOrDefault("APP_BASE_URL", "https://app.vendora.app"),
		VATRate:               vatRate,
		ClientSignaturePolicy: getEnvOrDefault("CLIENT_SIGNATURE_POLICY", ClientPolicyAcknowledge),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             getEnvOrDefault("LOG_FORMAT", "console"),
	}, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey, which the invoice numbering retry loop relies on.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Invoice{}, &models.InvoiceStep{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
