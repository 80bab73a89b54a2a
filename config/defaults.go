// Package config provides centralized default values for the funnel engine
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
)

var envLoaded sync.Once

// loadEnvFile loads environment variables from .env file
func loadEnvFile() {
	envLoaded.Do(func() {
		loadEnvFileOnce()
	})
}

func loadEnvFileOnce() {
	file, err := os.Open(".env")
	if err != nil {
		// .env file is optional, don't error if it doesn't exist
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on first = sign
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Only set if not already set in environment
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func init() {
	// Ensure .env is loaded before any config access
	loadEnvFile()
}

// getEnvInt reads environment variable with fallback to default
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvString reads environment variable with string fallback
func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvBool reads environment variable as boolean with fallback
func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Server Configuration
var (
	Port = getEnvString("PORT", "8080")
)

// Database Configuration
var (
	SQLitePath = getEnvString("SQLITE_PATH", "./db/funnel.db")

	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
)

// Checkout Configuration
var (
	CheckoutSuccessURL = getEnvString("CHECKOUT_SUCCESS_URL", "http://localhost:4321/funnel/success")
	CheckoutCancelURL  = getEnvString("CHECKOUT_CANCEL_URL", "http://localhost:4321/funnel/checkout")
)

// Email Configuration
var (
	SendReceiptEmails = getEnvBool("SEND_RECEIPT_EMAILS", true)
)

// TursoDatabaseURL returns the Turso connection URL, empty when unset.
func TursoDatabaseURL() string { return os.Getenv("TURSO_DATABASE_URL") }

// TursoAuthToken returns the Turso auth token, empty when unset.
func TursoAuthToken() string { return os.Getenv("TURSO_AUTH_TOKEN") }

// StripeSecretKey returns the Stripe API secret key.
func StripeSecretKey() string { return os.Getenv("STRIPE_SECRET_KEY") }

// StripeWebhookSecret returns the webhook signing secret (whsec_...).
func StripeWebhookSecret() string { return os.Getenv("STRIPE_WEBHOOK_SECRET") }

// JWTSecret returns the secret used to sign profile unlock tokens.
func JWTSecret() string { return getEnvString("JWT_SECRET", "insecure-dev-secret") }
