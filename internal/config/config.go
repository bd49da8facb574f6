package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking defaults applied when a clinic has no rules of its own.
	DefaultLeadTimeMinutes  int
	DefaultMaxAdvanceDays   int
	DefaultSlotStepMinutes  int
	IdempotencyTTL          time.Duration
	SlotLockTTL             time.Duration
	NotificationDailyCap    int
	RateLimitPerSecond      float64
	RateLimitBurst          int
	CORSAllowedOrigins      string
	ShutdownTimeout         time.Duration

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DefaultLeadTimeMinutes: getEnvAsInt("BOOKING_LEAD_TIME_MINUTES", 60),
		DefaultMaxAdvanceDays:  getEnvAsInt("BOOKING_MAX_ADVANCE_DAYS", 30),
		DefaultSlotStepMinutes: getEnvAsInt("BOOKING_SLOT_STEP_MINUTES", 15),
		IdempotencyTTL:         getEnvAsDuration("IDEMPOTENCY_TTL", 10*time.Minute),
		SlotLockTTL:            getEnvAsDuration("SLOT_LOCK_TTL", 10*time.Second),
		NotificationDailyCap:   getEnvAsInt("NOTIFICATION_DAILY_CAP", 3),
		RateLimitPerSecond:     getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:         getEnvAsInt("RATE_LIMIT_BURST", 20),
		CORSAllowedOrigins:     getEnv("CORS_ALLOWED_ORIGINS", ""),
		ShutdownTimeout:        getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "ClinicOps"),
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
