package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/finanzas")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.BaseCurrency != "ARS" {
		t.Errorf("BaseCurrency = %q, want ARS", cfg.BaseCurrency)
	}
	if cfg.JWTTTL != 168*time.Hour {
		t.Errorf("JWTTTL = %v", cfg.JWTTTL)
	}
	if !cfg.AutoMigrate {
		t.Error("AutoMigrate should default to true")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/finanzas")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BASE_CURRENCY", "usd")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("REGISTRATION_ALLOWLIST", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseCurrency != "USD" {
		t.Errorf("BaseCurrency = %q, want USD", cfg.BaseCurrency)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.RateLimit != 5 || cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("rate limit = %d/%v", cfg.RateLimit, cfg.RateLimitWindow)
	}
	if !cfg.DemoMode {
		t.Error("DemoMode should be true")
	}
	if !cfg.RegistrationAllowlist {
		t.Error("RegistrationAllowlist should be true")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL and JWT_SECRET are empty")
	}
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/finanzas")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric RATE_LIMIT")
	}
}
