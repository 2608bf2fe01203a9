package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort                = "8080"
	defaultDatabaseURL         = "rental.db"
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultJWTTTL              = "24h"
	defaultLockTTL             = "10s"
	defaultAvailabilityMaxDays = "366"
	defaultCatalogLocale       = "ko"
	defaultCORSOrigins         = "http://localhost:3000,http://localhost:5173"
	defaultLogSQL              = "false"
	defaultNotificationKeep    = "90"
)

type Config struct {
	AppEnv              string
	Port                string
	DatabaseURL         string
	JWTSecret           string
	JWTTTL              time.Duration
	RedisAddr           string
	RedisPassword       string
	LockTTL             time.Duration
	AvailabilityMaxDays int
	CatalogLocale       string
	CORSAllowedOrigins  []string
	LogSQL              bool
	InternalToken       string
	InternalAllowedIPs  []string
	NotificationKeep    int
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] config: .env not loaded: %v", err)
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RedisAddr = strings.TrimSpace(getEnv("REDIS_ADDR", ""))
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.CatalogLocale = strings.TrimSpace(getEnv("CATALOG_LOCALE", defaultCatalogLocale))
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins))
	cfg.LogSQL = parseBoolEnv("LOG_SQL", defaultLogSQL)
	cfg.InternalToken = strings.TrimSpace(getEnv("INTERNAL_TOKEN", ""))
	cfg.InternalAllowedIPs = splitList(getEnv("INTERNAL_ALLOWED_IPS", ""))

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}
	cfg.LockTTL, err = parseDurationEnv("LOCK_TTL", defaultLockTTL)
	if err != nil {
		return nil, err
	}
	cfg.AvailabilityMaxDays, err = parseIntEnv("AVAILABILITY_MAX_DAYS", defaultAvailabilityMaxDays)
	if err != nil {
		return nil, err
	}
	cfg.NotificationKeep, err = parseIntEnv("NOTIFICATION_RETENTION_DAYS", defaultNotificationKeep)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config: env=%s, port=%s, redis_lock=%t, availability_max_days=%d",
		cfg.AppEnv, cfg.Port, cfg.RedisAddr != "", cfg.AvailabilityMaxDays)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be > 0")
	}
	if cfg.AvailabilityMaxDays <= 0 {
		return fmt.Errorf("AVAILABILITY_MAX_DAYS must be > 0")
	}
	if cfg.NotificationKeep <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION_DAYS must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}

	return nil
}

// IsProdLike reports whether the app runs with production settings.
func (c *Config) IsProdLike() bool { return isProdLike(c.AppEnv) }

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
