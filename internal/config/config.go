package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application runtime configuration.
type Config struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	RedisURL        string
	DefaultCurrency string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// OTP login
	OTPCodeLength int
	OTPCodeTTL    time.Duration

	// Outbound mail (OTP delivery)
	SendGridAPIKey   string
	SendGridFrom     string
	OrganizationName string

	// Push (optional)
	FirebaseProjectID string
	FirebaseCredFile  string

	// When true, quarterly/annual charge amounts are prorated to a monthly
	// share during bill generation instead of being billed at face value.
	NormalizeBillingCycles bool

	SeedAdminEmail string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads environment variables and .env (if present).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DefaultCurrency:        getEnv("CURRENCY_CODE", "USD"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		AccessTokenTTL:         getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL:        getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		OTPCodeLength:          getInt("OTP_CODE_LENGTH", 6),
		OTPCodeTTL:             getDuration("OTP_CODE_TTL", 5*time.Minute),
		SendGridAPIKey:         os.Getenv("SENDGRID_API_KEY"),
		SendGridFrom:           os.Getenv("SENDGRID_FROM_EMAIL"),
		OrganizationName:       getEnv("ORGANIZATION_NAME", "Key Building"),
		FirebaseProjectID:      os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredFile:       os.Getenv("FIREBASE_CREDENTIALS"),
		NormalizeBillingCycles: getBool("NORMALIZE_BILLING_CYCLES", false),
		SeedAdminEmail:         os.Getenv("SEED_ADMIN_EMAIL"),
		ReadTimeout:            getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:           getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:            getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:        getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(val); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}
