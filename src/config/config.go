package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration
	AutoMigrate bool

	BaseCurrency string

	LogLevel  string
	LogFormat string

	CORSOrigins           []string
	DemoMode              bool
	RegistrationAllowlist bool

	RedisAddr       string
	RedisPassword   string
	RateLimit       int
	RateLimitWindow time.Duration
	RateLimitBlock  time.Duration

	CacheMaxCost int64
}

func Load() (Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		BaseCurrency:  strings.ToUpper(getEnv("BASE_CURRENCY", "ARS")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		CORSOrigins:   getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}

	var errs []error
	var err error
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 168*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.AutoMigrate, err = getEnvBool("AUTO_MIGRATE", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.DemoMode, err = getEnvBool("DEMO_MODE", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.RegistrationAllowlist, err = getEnvBool("REGISTRATION_ALLOWLIST", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimit, err = getEnvInt("RATE_LIMIT", 20); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitBlock, err = getEnvDuration("RATE_LIMIT_BLOCK", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	cacheCost, err := getEnvInt("CACHE_MAX_COST", 10000)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.CacheMaxCost = int64(cacheCost)

	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	return cfg, errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
