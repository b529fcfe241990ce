package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	TestMode           bool
	InteractionLogPath string
	CORSAllowedOrigins []string
	AdminJWTSecret     string
	RateLimitPerSecond float64
	RateLimitBurst     int

	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	DatabaseURL      string
	PricingTablePath string

	// Remarketing
	RemarketingEnabled       bool
	RemarketingInactivity    time.Duration
	RemarketingRetryInterval time.Duration
	RemarketingMaxAttempts   int
	RemarketingSweepInterval time.Duration
	RemarketingBackend       string
	RemarketingTable         string

	// Twilio
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWebhookSecret string
	TwilioFromNumber    string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	LeadQueueURL        string

	// Broker notification
	BrokerEmail    string
	EmailFrom      string
	EmailFromName  string
	SendGridAPIKey string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		TestMode:           getEnvAsBool("TEST_MODE", false),
		InteractionLogPath: getEnv("INTERACTION_LOG_PATH", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PricingTablePath: getEnv("PRICING_TABLE_PATH", ""),

		RemarketingEnabled:       getEnvAsBool("REMARKETING_ENABLED", true),
		RemarketingInactivity:    getEnvAsDuration("REMARKETING_INACTIVITY", 24*time.Hour),
		RemarketingRetryInterval: getEnvAsDuration("REMARKETING_RETRY_INTERVAL", 24*time.Hour),
		RemarketingMaxAttempts:   getEnvAsIntInRange("REMARKETING_MAX_ATTEMPTS", 3, 1, 10),
		RemarketingSweepInterval: getEnvAsDuration("REMARKETING_SWEEP_INTERVAL", 15*time.Minute),
		RemarketingBackend:       strings.ToLower(getEnv("REMARKETING_BACKEND", "memory")),
		RemarketingTable:         getEnv("REMARKETING_TABLE", "remarketing_registry"),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		LeadQueueURL:        getEnv("LEAD_QUEUE_URL", ""),

		BrokerEmail:    getEnv("BROKER_EMAIL", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Plena Saúde"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsIntInRange is getEnvAsInt with values outside [lo, hi] replaced by
// the default.
func getEnvAsIntInRange(key string, defaultValue, lo, hi int) int {
	value := getEnvAsInt(key, defaultValue)
	if value < lo || value > hi {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
