// utils/config.go
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to boot the service.
type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	ServiceToken   string

	PaymentServiceURL   string
	PaymentServiceToken string
	PaymentTokenAddress string
	PaymentTokenSymbol  string
	PaymentTimeout      time.Duration

	ConfirmationMaxAttempts int
	ConfirmationInterval    time.Duration

	SyncServiceURL string
	SyncInterval   time.Duration

	LogLevel  string
	LogFormat string
}

// LoadConfig reads .env (if present) and the process environment.
// It returns whether a .env file was found so the caller can log it once the logger is up.
func LoadConfig() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Port:                getEnv("PORT", "5200"),
		ServiceToken:        os.Getenv("SERVICE_TOKEN"),
		PaymentServiceURL:   strings.TrimRight(os.Getenv("PAYMENT_SERVICE_URL"), "/"),
		PaymentServiceToken: os.Getenv("PAYMENT_SERVICE_TOKEN"),
		PaymentTokenAddress: strings.TrimSpace(os.Getenv("PAYMENT_TOKEN_ADDRESS")),
		PaymentTokenSymbol:  getEnv("PAYMENT_TOKEN_SYMBOL", "XPL"),
		SyncServiceURL:      strings.TrimRight(os.Getenv("SYNC_SERVICE_URL"), "/"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
	}

	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	var err error
	if cfg.ConfirmationMaxAttempts, err = getInt("CONFIRMATION_MAX_ATTEMPTS", 10); err != nil {
		return nil, envLoaded, err
	}
	if cfg.ConfirmationInterval, err = getDuration("CONFIRMATION_INTERVAL", 2*time.Second); err != nil {
		return nil, envLoaded, err
	}
	if cfg.PaymentTimeout, err = getDuration("PAYMENT_TIMEOUT", 30*time.Second); err != nil {
		return nil, envLoaded, err
	}
	if cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", time.Minute); err != nil {
		return nil, envLoaded, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, envLoaded, err
	}
	return cfg, envLoaded, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ServiceToken == "" {
		missing = append(missing, "SERVICE_TOKEN")
	}
	if c.PaymentServiceURL == "" {
		missing = append(missing, "PAYMENT_SERVICE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.ConfirmationMaxAttempts <= 0 {
		return fmt.Errorf("CONFIRMATION_MAX_ATTEMPTS must be positive, got %d", c.ConfirmationMaxAttempts)
	}
	if c.ConfirmationInterval < 0 {
		return fmt.Errorf("CONFIRMATION_INTERVAL must not be negative, got %s", c.ConfirmationInterval)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
