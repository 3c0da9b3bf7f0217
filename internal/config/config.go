package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. Everything the authentication core
// needs is a named field resolved once at startup; no package below main
// reads the environment.
type Config struct {
	ServerPort string

	// Database: sqlite (default), postgres, or mysql
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	MigrationsPath string

	// Credential and token lifetimes
	SessionDuration time.Duration // bearer session TTL, default 7 days
	ResetTokenTTL   time.Duration // password reset validity, default 1 hour

	// Password policy
	BcryptCost        int
	PasswordMinLength int

	// Abuse guard budgets. Auth covers login/register/forgot-password;
	// Sensitive covers reset-password and authenticated password change.
	AuthRateLimit       int
	AuthRateWindow      time.Duration
	SensitiveRateLimit  int
	SensitiveRateWindow time.Duration

	// Optional Redis URL for distributed rate-limit counters
	RedisURL string

	// Public base URL used in emails and OAuth redirects
	AppBaseURL           string
	OAuthRedirectBaseURL string

	// Amazon SES (email disabled when SESFromEmail is empty)
	SESRegion    string
	SESFromEmail string
	SESFromName  string

	// OAuth provider credentials
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	AppleClientID        string
	AppleClientSecret    string
	DiscordClientID      string
	DiscordClientSecret  string
	SlackClientID        string
	SlackClientSecret    string
}

// Load reads configuration from the environment (and a .env file when
// present) with sensible defaults
func Load() *Config {
	// Best effort: absence of a .env file is not an error
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:    getEnv("DB_URL", ""),
		DatabasePath:   getEnv("DB_PATH", "./aidesk.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		SessionDuration: getEnvDuration("SESSION_DURATION", 7*24*time.Hour),
		ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", 1*time.Hour),

		BcryptCost:        getEnvInt("BCRYPT_COST", 12),
		PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 8),

		AuthRateLimit:       getEnvInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow:      getEnvDuration("AUTH_RATE_WINDOW", 15*time.Minute),
		SensitiveRateLimit:  getEnvInt("SENSITIVE_RATE_LIMIT", 10),
		SensitiveRateWindow: getEnvDuration("SENSITIVE_RATE_WINDOW", 15*time.Minute),

		RedisURL: getEnv("REDIS_URL", ""),

		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:8080"),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),

		SESRegion:    getEnv("SES_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Aidesk"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		AppleClientID:        getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:    getEnv("APPLE_CLIENT_SECRET", ""),
		DiscordClientID:      getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret:  getEnv("DISCORD_CLIENT_SECRET", ""),
		SlackClientID:        getEnv("SLACK_CLIENT_ID", ""),
		SlackClientSecret:    getEnv("SLACK_CLIENT_SECRET", ""),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
